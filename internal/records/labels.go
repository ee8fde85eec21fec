package records

// fieldLabels maps internal field names to the headings shown in exports.
var fieldLabels = map[string]string{
	"id":                         "Folio",
	"fecha":                      "Fecha de levantamiento",
	"localidad":                  "Localidad",
	"colonia":                    "Colonia",
	"encuestador":                "Encuestador",
	"estado_civil":               "Estado civil",
	"sexo":                       "Sexo",
	"escolaridad":                "Escolaridad",
	"ocupacion":                  "Ocupación",
	"edad_0_12":                  "Integrantes de 0 a 12 años",
	"edad_13_17":                 "Integrantes de 13 a 17 años",
	"edad_18_59":                 "Integrantes de 18 a 59 años",
	"edad_60_mas":                "Integrantes de 60 años o más",
	"hab_frecuencia_recoleccion": "Frecuencia de recolección",
	"hab_destino":                "Destino de los residuos",
	"hab_compostaje":             "Elabora composta",
	"sep_importancia":            "Importancia de separar",
	"sep_hogar":                  "Separación en el hogar",
	"sep_contenedores":           "Contenedores diferenciados",
	"sep_informacion":            "Información sobre separación",
	"rec_disposicion":            "Disposición a llevar reciclables",
	"rec_pago":                   "Disposición a pagar reciclaje",
	"rec_beneficio":              "Beneficio económico del reciclaje",
	"serv_frecuencia":            "Frecuencia adecuada",
	"serv_puntualidad":           "Puntualidad del camión",
	"serv_trato":                 "Trato del personal",
	"serv_limpieza":              "Limpieza posterior",
	"muestra":                    "Muestra",
	"dia_muestreo":               "Día de muestreo",
	"peso_total_kg":              "Peso total (kg)",
	"peso_organico_kg":           "Orgánico (kg)",
	"peso_papel_carton_kg":       "Papel y cartón (kg)",
	"peso_plastico_kg":           "Plástico (kg)",
	"peso_vidrio_kg":             "Vidrio (kg)",
	"peso_metal_kg":              "Metal (kg)",
	"peso_sanitario_kg":          "Sanitario (kg)",
	"peso_otros_kg":              "Otros (kg)",
	"volumen_m3":                 "Volumen (m³)",
	"habitantes":                 "Habitantes de la vivienda",
}

// Label returns the human-readable heading of a field; unmapped fields pass through.
func Label(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}
