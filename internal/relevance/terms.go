package relevance

import "pulso/internal/news"

// blocklist holds noise vocabulary that disqualifies an item regardless of
// any geo or policy match. Terms are matched whole-word against the
// normalized title+description; multi-word entries require the contiguous
// word sequence. English and Portuguese forms are both listed because the
// regional feeds mix languages.
var blocklist = []string{
	// sports
	"football", "soccer", "match", "championship", "cup final", "goal",
	"striker", "futebol", "campeonato", "gol", "jogo", "flamengo",
	"corinthians", "libertadores", "world cup", "copa do mundo", "olympics",
	"volleyball", "basketball", "tennis",

	// celebrity / entertainment
	"celebrity", "actor", "actress", "singer", "reality show", "premiere",
	"red carpet", "box office", "celebridade", "ator", "atriz", "cantora",
	"cantor", "novela", "bbb", "carnaval parade", "gossip", "fofoca",
	"influencer", "netflix series",

	// lifestyle
	"recipe", "travel destinations", "best destinations", "vacation",
	"horoscope", "fashion week", "wellness", "receita culinaria",
	"horoscopo", "moda", "turismo", "viagem", "restaurant review",
	"lifestyle", "dicas de beleza",

	// weather / local incidents
	"weather forecast", "heatwave", "previsao do tempo", "transito",
	"traffic accident", "car crash", "acidente de carro", "house fire",
	"incendio residencial", "lottery", "loteria", "mega sena",
}

// geoAnchors maps each regional category to its gazetteer of place and
// political-entity names. A classifier accept requires at least one match
// here plus one policy-term match.
var geoAnchors = map[news.Category][]string{
	news.CategoryBrazil: {
		"brazil", "brasil", "brazilian", "brasileiro", "brasileira",
		"brasilia", "sao paulo", "rio de janeiro", "minas gerais",
		"amazonia", "amazon rainforest", "planalto", "itamaraty",
		"petrobras", "banco central do brasil", "stf", "senado federal",
		"camara dos deputados", "lula", "mercosul", "mercosur", "real",
	},
	news.CategoryLatam: {
		"latin america", "america latina", "latam", "south america",
		"argentina", "buenos aires", "chile", "santiago", "colombia",
		"bogota", "peru", "lima", "mexico", "mexico city", "bolivia",
		"la paz", "ecuador", "quito", "uruguay", "montevideo", "paraguay",
		"asuncion", "venezuela", "caracas", "cuba", "havana", "panama",
		"guatemala", "honduras", "el salvador", "nicaragua",
		"dominican republic", "mercosur", "mercosul", "oas", "oea",
	},
}

// policyTerms is the shared cross-domain substance vocabulary: policy,
// economy, security and governance words in English, Portuguese and
// Spanish. A geo match without one of these is treated as incidental.
var policyTerms = []string{
	// government / politics
	"government", "president", "minister", "congress", "senate",
	"parliament", "election", "legislation", "decree", "reform",
	"impeachment", "supreme court", "constitution", "governo",
	"presidente", "ministro", "congresso", "senado", "eleicao",
	"eleicoes", "reforma", "decreto", "gobierno", "elecciones",

	// economy / finance
	"economy", "inflation", "interest rate", "central bank", "gdp",
	"fiscal", "budget", "debt", "currency", "tax", "tariff", "trade",
	"exports", "imports", "investment", "economia", "inflacao", "juros",
	"banco central", "orcamento", "imposto", "comercio", "inversion",
	"deuda", "impuestos",

	// security / diplomacy
	"security", "military", "defense", "police operation", "sanctions",
	"diplomacy", "treaty", "border", "cartel", "corruption",
	"investigation", "prosecutor", "seguranca", "militar", "defesa",
	"sancoes", "diplomacia", "fronteira", "corrupcao", "investigacao",
	"procurador", "seguridad", "corrupcion",

	// policy domains
	"energy", "oil", "mining", "agriculture", "environment",
	"deforestation", "regulation", "healthcare", "education", "pension",
	"labor", "energia", "petroleo", "mineracao", "agricultura",
	"meio ambiente", "desmatamento", "regulacao", "saude", "educacao",
	"previdencia", "trabalho",
}
