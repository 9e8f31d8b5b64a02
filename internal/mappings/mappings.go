// internal/mappings/mappings.go

// Package mappings holds the static translation tables between the HR
// database's coded values and the option values the MetaX portal expects.
// The tables are data, not logic; callers decide what an absent key means.
package mappings

// JobTitles maps HR job descriptions to the exact labels the portal's cargo
// dropdown carries when the names diverge. Keys and values are normalized
// uppercase without accents.
var JobTitles = map[string]string{
	"AUXILIAR DE SERVICOS GERAIS":          "AUXILIAR DE SERVICOS GERAIS",
	"APROPRIADOR":                          "APROPRIADOR",
	"ENCARREGADO DE SOLDA I":               "ENCARREGADO DE SOLDA",
	"ENCARREGADO DE MECANICA I":            "ENCARREGADO DE MECANICA",
	"ASSISTENTE DE ADM DE PESSOAL I":       "ASSISTENTE ADM PESSOAL",
	"ALMOXARIFE":                           "ALMOXARIFE",
	"CALDEIREIRO":                          "CALDEIRO",
	"ENCARREGADO DE MONTAGEM":              "ENCARREGADO DE MONTAGEM",
	"AJUDANTE":                             "AJUDANTE",
	"TECNICO DE SEGURANCA DE TRABALHO III": "TECNICO DE SEGURANCA - INDIRETA",
	"INSPETOR DE SOLDA NIVEL I":            "INSPETOR DE SOLDA N1",
	"MECANICO MONTADOR":                    "MECANICO MONTADOR",
	"MONTADOR DE ANDAIME":                  "MONTADOR DE ANDAIME",
	"PINTOR INDUSTRIAL":                    "PINTOR INDUSTRIAL",
	"COORDENADOR DE PLANEJAMENTO I":        "COORDENADOR DE PLANEJAMENTO",
}

// Education translates HR education codes into the portal's escolaridade
// option values. Several HR codes collapse into the same portal level.
var Education = map[string]string{
	"1": "1",  // analfabeto
	"2": "2",  // fundamental incompleto
	"3": "3",  // fundamental completo
	"4": "2",  // 6o ao 9o ano, counts as fundamental incompleto
	"5": "3",  // fundamental completo
	"6": "4",  // medio incompleto
	"7": "5",  // medio completo
	"8": "7",  // superior incompleto
	"9": "8",  // superior completo
	"A": "9",  // pos-graduacao incompleta
	"B": "10", // pos-graduacao completa
	"C": "11", // mestrado
	"D": "11", // mestrado
	"E": "12", // doutorado
	"F": "12", // doutorado
	"G": "13", // outros
	"H": "13", // outros
}

// MaritalStatus translates HR marital codes into portal option values.
var MaritalStatus = map[string]string{
	"S": "1", // solteiro
	"E": "2", // uniao estavel
	"C": "3", // casado
	"P": "4", // separado
	"I": "5", // divorciado
	"V": "6", // viuvo
}

// Sex translates HR sex codes into portal option values.
var Sex = map[string]string{
	"F": "1",
	"M": "2",
}

// BirthState translates UF abbreviations into the portal's non-obvious
// estado natal option values.
var BirthState = map[string]string{
	"AC": "12",
	"AL": "20",
	"AP": "15",
	"AM": "13",
	"BA": "21",
	"CE": "22",
	"DF": "11",
	"ES": "1",
	"GO": "10",
	"MA": "19",
	"MT": "8",
	"MS": "9",
	"MG": "4",
	"PA": "14",
	"PB": "23",
	"PR": "5",
	"PE": "25",
	"PI": "24",
	"RJ": "2",
	"RN": "26",
	"RS": "7",
	"RO": "17",
	"RR": "16",
	"SC": "6",
	"SP": "3",
	"SE": "27",
	"TO": "18",
	"OUTROS": "28",
}

// FallbackCEP holds the fixed per-state postal codes used when a person's
// own CEP resolves to an empty neighborhood and the address must be forced.
var FallbackCEP = map[string]string{
	"BA": "40015000",
	"PA": "66010000",
}

// DefaultFallbackCEP is used when the person's state has no entry in
// FallbackCEP.
const DefaultFallbackCEP = "79582034"
