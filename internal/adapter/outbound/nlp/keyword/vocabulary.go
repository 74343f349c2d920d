package keyword

// Word lists are matched after folding (lower case, accents removed), so
// entries may be written with or without accents.

var positiveWords = []string{
	"gracias", "excelente", "bueno", "genial", "perfecto", "me encanta",
	"interesado", "interesada", "vacante", "empleo", "trabajo", "sueldo", "salario",
	"beneficios", "oportunidad", "quiero", "me gusta", "fascinante",
	"impresionante", "increíble", "fantástico", "sí", "por favor", "contactar",
	"información", "detalles", "proceso", "entrevista",
	"thanks", "thank you", "great", "excellent", "awesome", "love", "amazing",
	"interested",
}

var negativeWords = []string{
	"malo", "horrible", "no", "rechazo", "problema", "error", "mal", "terrible",
	"descontento", "insatisfecho", "cancelar", "no quiero", "no me interesa",
	"spam", "molesto", "cansado", "aburrido",
	"bad", "awful", "hate", "scam", "problem",
}

var jobKeywords = []string{
	"vacante", "empleo", "trabajo", "puesto", "cargo", "oportunidad laboral",
	"contrato", "sueldo", "salario", "beneficios", "horario", "remoto",
	"presencial", "tiempo completo", "medio tiempo", "freelance", "proyecto",
	"equipo", "empresa",
}

var interestPhrases = []string{
	"interesado", "interesada", "quiero", "me gusta", "información", "detalles",
	"más info", "contactar", "hablar", "conversar", "aplicar", "postular",
	"candidato",
}

// interestPatterns run against folded text.
var interestPatterns = []string{
	`quiero\s+(aplicar|postular|trabajar)`,
	`me\s+interesa\s+(el|la|este|esta)\b`,
	`mas\s+informacion`,
	`como\s+(puedo\s+)?aplicar`,
	`donde\s+(puedo\s+)?enviar`,
	`want\s+to\s+(apply|work)`,
	`more\s+info(rmation)?`,
	`how\s+(do\s+i\s+|can\s+i\s+|to\s+)?apply`,
	`where\s+(do\s+i\s+|can\s+i\s+|to\s+)?send`,
}

type topic struct {
	name     string
	keywords []string
}

var topics = []topic{
	{"salario", []string{"sueldo", "salario", "pago", "remuneración"}},
	{"beneficios", []string{"beneficios", "prestaciones", "seguro", "vacaciones"}},
	{"horario", []string{"horario", "jornada", "tiempo", "flexible"}},
	{"remoto", []string{"remoto", "home office", "trabajo desde casa", "teletrabajo"}},
	{"equipo", []string{"equipo", "trabajo en equipo", "colaboración"}},
	{"cultura", []string{"cultura", "ambiente", "empresa", "organización"}},
}

var cities = []string{
	"cdmx", "ciudad de méxico", "guadalajara", "monterrey", "puebla", "tijuana",
}

var professionalAreas = []string{
	"desarrollo", "programación", "diseño", "marketing", "ventas", "rrhh",
	"recursos humanos",
}

var (
	salaryWords   = []string{"sueldo", "salario"}
	benefitsWords = []string{"beneficios", "prestaciones"}
)

// Canned replies returned as the suggested response.
const (
	ReplyJobInterest = "¡Hola! 👋 Nos encanta que estés interesado en nuestra oferta. Nuestro equipo revisará tu perfil y te contactaremos pronto. ¿Tienes alguna pregunta específica? 💼"
	ReplySalary      = "Gracias por tu interés. El salario se discute según el perfil y experiencia. ¿Te gustaría que te contactemos por DM para más detalles? 💰"
	ReplyBenefits    = "Ofrecemos un paquete completo de beneficios. Te enviaré más información por DM. 📋"
	ReplyPositive    = "¡Gracias por tu comentario! 😊 Si tienes interés en nuestras oportunidades, déjanos un DM. 🚀"
	ReplyNegative    = "Lamentamos tu experiencia. Por favor, contáctanos por DM para resolver esto de manera personalizada. 🙏"
	ReplyDefault     = "¡Hola! 😊 Gracias por tu interés en el proceso. Nuestro equipo te contactará pronto."
)
