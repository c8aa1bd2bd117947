package i18n

var en = map[string]any{
	"dialogue": map[string]any{
		"chooseLanguage":  "Hello! I'll help you fill out this form. Which language would you like to use, English or Spanish? / ¡Hola! Te ayudaré a completar este formulario. ¿Qué idioma prefieres, inglés o español?",
		"languageRetry":   "Please answer \"English\" or \"Español\" so I know which language to use. / Por favor responde \"English\" o \"Español\".",
		"askField":        "What is your %s?",
		"askCheckbox":     "%s — yes or no?",
		"askOptions":      "Please choose one of the following for %s: %s",
		"invalidText":     "I didn't catch that. Please enter a value for %s.",
		"invalidNumber":   "That doesn't look like a number. Please enter a numeric value for %s.",
		"invalidDate":     "That doesn't look like a valid date. Please use the format YYYY-MM-DD for %s.",
		"invalidEmail":    "That doesn't look like a valid email address. Please try again for %s.",
		"invalidCheckbox": "Please answer yes or no for %s.",
		"invalidOption":   "That's not one of the available options for %s. Please choose: %s",
		"complete":        "All done! Every required field has been filled in. You can review the preview and download your form.",
		"noFields":        "This form has no fields that need to be collected, so there's nothing more to ask. You can download it right away.",
	},
	"form": map[string]any{
		"noFieldsFound":          "No fillable fields were found in this PDF. You can still fill the form manually.",
		"looksLikeFlatForm":      "This PDF has no interactive fields, but it looks like a printed form. Try manual entry instead.",
		"parseError":             "The uploaded file could not be read as a PDF.",
		"previewError":           "The preview could not be updated. Your entered values are safe.",
		"dataExtracted":          "Data was extracted from your PDF.",
		"dataPartiallyExtracted": "Some data was extracted, but required fields are still missing.",
	},
	"fields": map[string]any{
		"fullName":     "full name",
		"nationalId":   "national ID (DNI/NIE)",
		"birthDate":    "birth date",
		"email":        "email address",
		"income":       "annual income",
		"taxResidence": "Spanish tax residence",
	},
}

var es = map[string]any{
	"dialogue": map[string]any{
		"chooseLanguage":  "¡Hola! Te ayudaré a completar este formulario. ¿Qué idioma prefieres, inglés o español? / Hello! Which language would you like to use, English or Spanish?",
		"languageRetry":   "Por favor responde \"English\" o \"Español\" para saber qué idioma usar.",
		"askField":        "¿Cuál es tu %s?",
		"askCheckbox":     "%s — ¿sí o no?",
		"askOptions":      "Elige una de las siguientes opciones para %s: %s",
		"invalidText":     "No te he entendido. Introduce un valor para %s.",
		"invalidNumber":   "Eso no parece un número. Introduce un valor numérico para %s.",
		"invalidDate":     "Eso no parece una fecha válida. Usa el formato AAAA-MM-DD para %s.",
		"invalidEmail":    "Eso no parece una dirección de correo válida. Inténtalo de nuevo para %s.",
		"invalidCheckbox": "Responde sí o no para %s.",
		"invalidOption":   "Esa no es una de las opciones disponibles para %s. Elige: %s",
		"complete":        "¡Listo! Todos los campos obligatorios están completos. Puedes revisar la vista previa y descargar tu formulario.",
		"noFields":        "Este formulario no tiene campos que recopilar, así que no hay nada más que preguntar. Puedes descargarlo directamente.",
	},
	"form": map[string]any{
		"noFieldsFound":          "No se encontraron campos rellenables en este PDF. Puedes completar el formulario manualmente.",
		"looksLikeFlatForm":      "Este PDF no tiene campos interactivos, pero parece un formulario impreso. Prueba la entrada manual.",
		"parseError":             "El archivo subido no se pudo leer como PDF.",
		"previewError":           "No se pudo actualizar la vista previa. Tus valores están a salvo.",
		"dataExtracted":          "Se extrajeron datos de tu PDF.",
		"dataPartiallyExtracted": "Se extrajeron algunos datos, pero faltan campos obligatorios.",
	},
	"fields": map[string]any{
		"fullName":     "nombre completo",
		"nationalId":   "DNI/NIE",
		"birthDate":    "fecha de nacimiento",
		"email":        "correo electrónico",
		"income":       "ingresos anuales",
		"taxResidence": "residencia fiscal en España",
	},
}
