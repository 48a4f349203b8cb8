package conversation

const (
	termsPrompt = "¡Hola! 👋 ¡Bienvenid@! Gracias por ponerte en contacto con nosotros. " +
		"Antes de iniciar, es necesario que aceptes los términos y condiciones de EstoEsPamii. " +
		"Si quieres conocer más, ingresa aquí: https://estoespamii.co/www/tycclientes2024.html\n\n" +
		"Para continuar elige:\n\n" +
		"1. Acepto\n" +
		"2. No acepto"

	mainPrompt = "¡Hola! 👋 ¡Bienvenid@ a EstoEsPamii! Soy tu asistente virtual, list@ para darte una mano. 😉\n\n" +
		"Elige una opción:\n\n" +
		"1. Chatear con un asesor\n" +
		"2. ¿Cómo va mi pedido?\n" +
		"3. Reclamos/Devoluciones\n" +
		"4. Trabaja con nosotros (enviar hoja de vida)\n" +
		"5. ¡Chao!\n\n" +
		"Ingresa el número. 👇"

	agentCategoryPrompt = "¡Genial! 😉 ¿Sobre qué necesitas ayuda? Elige una categoría:\n\n" +
		"1. Quiero comprar / Ver productos\n" +
		"2. Ayuda con mis compras\n" +
		"3. Volver al inicio"

	orderPrompt = "Seleccione una opción:\n\n" +
		"1. Consultar por número de pedido 🔍\n" +
		"2. Consultar pedidos recientes 📋\n" +
		"3. Volver al menú principal ⬅️"

	complaintsPrompt = "Seleccione una opción:\n\n" +
		"1. Registrar un nuevo reclamo ✍️\n" +
		"2. Consultar estado de un reclamo 📊\n" +
		"3. Solicitar devolución 🔙\n" +
		"4. Volver al menú principal ⬅️"
)

// Fixed replies outside the menu tables.
const (
	MsgExpired  = "Han pasado 5 minutos sin respuesta. La conversación ha expirado. Escribe 'hola' para empezar de nuevo."
	MsgExited   = "Has salido del modo actual. Escribe 'hola' para ver el menú."
	MsgFailure  = "Ocurrió un error. Por favor, intenta de nuevo."
	MsgReleased = "Tu conversación con el asesor ha finalizado. Escribe 'hola' para empezar de nuevo."

	msgTermsRejected = "Acepta los términos y condiciones para continuar"
	msgGoodbye       = "Conversación finalizada. Escribe 'hola' para iniciar de nuevo."
	msgResumePrompt  = "Por favor, adjunta tu hoja de vida como documento (PDF o Word)."
)

// Prompt returns the menu text shown on entering stage. Only menu stages have one.
func Prompt(stage Stage) (string, bool) {
	switch stage {
	case StageTerms:
		return termsPrompt, true
	case StageMain:
		return mainPrompt, true
	case StageAgentCategory:
		return agentCategoryPrompt, true
	case StageOrder:
		return orderPrompt, true
	case StageComplaints:
		return complaintsPrompt, true
	}
	return "", false
}
