package conversation

import (
	"fmt"
	"time"
)

// User-facing copy. The assistant has always spoken Spanish to its
// customers; transports render *asterisks* as bold on both Telegram
// and WhatsApp.

var welcomeLines = []string{
	"¡Bienvenido al Servicio Técnico MyF! 👋",
	"Soy tu asistente virtual para agendar reparaciones de computadores.",
	"",
	"¿Qué tipo de servicio necesitas?",
	"",
	"1️⃣ Reparación de hardware",
	"2️⃣ Reparación de software",
	"3️⃣ Mantenimiento preventivo",
	"4️⃣ Instalación de programas",
	"5️⃣ Otro",
	"",
	"Responde con el número de tu opción o escribe el servicio.",
}

// serviceCatalog maps the numeric menu options to service names. Any
// other non-empty answer is accepted verbatim.
var serviceCatalog = map[string]string{
	"1": "Reparación de hardware",
	"2": "Reparación de software",
	"3": "Mantenimiento preventivo",
	"4": "Instalación de programas",
	"5": "Otro",
}

func devicePrompt(service string) []string {
	return []string{
		fmt.Sprintf("Perfecto, has seleccionado: *%s*", service),
		"",
		"¿Cuál es la marca y modelo de tu equipo?",
	}
}

func problemPrompt(device string) []string {
	return []string{
		fmt.Sprintf("Entendido, es un *%s*.", device),
		"",
		"Describe brevemente el problema que tiene tu equipo:",
	}
}

func namePrompt(problem string) []string {
	return []string{
		fmt.Sprintf("Gracias por la información. Problema registrado: \"%s\"", problem),
		"",
		"Por favor, indícame tu nombre completo:",
	}
}

func schedulePrompt(name string) []string {
	return []string{
		fmt.Sprintf("Perfecto, %s! 👍", name),
		"",
		"Ahora indícame cuándo te gustaría agendar la cita.",
		"Formato: *DD/MM HH:MM* (ejemplo: *15/01 10:30*)",
		"",
		"⏰ Horario de atención:",
		"• Lunes a Viernes: 9:00 - 17:00",
		"• Sábados: 9:00 - 12:00",
		"• Domingos: Cerrado",
	}
}

func confirmationLines(req Request, scheduled time.Time) []string {
	return []string{
		"✅ *¡Cita agendada exitosamente!*",
		"",
		"📋 *Resumen de tu cita:*",
		fmt.Sprintf("👤 Nombre: %s", req.Name),
		fmt.Sprintf("🔧 Servicio: %s", req.Service),
		fmt.Sprintf("💻 Equipo: %s", req.Device),
		fmt.Sprintf("📝 Problema: %s", req.Problem),
		fmt.Sprintf("📅 Fecha y hora: %s", scheduled.Format("02/01/2006 15:04")),
		"",
		"📞 Te contactaremos pronto para confirmar tu cita.",
		"¿Necesitas agendar otra cita? Envía *hola* para comenzar de nuevo.",
	}
}

var (
	emptyInputLines = []string{
		"Por favor escribe una respuesta para continuar.",
	}
	invalidFormatLines = []string{
		"❌ Formato de fecha/hora no válido.",
		"Por favor usa el formato: *DD/MM HH:MM* (ej: 15/01 10:30)",
	}
	outsideHoursLines = []string{
		"❌ Fuera de horario de atención. Por favor elige otra hora.",
	}
	slotTakenLines = []string{
		"❌ Horario ya reservado. Por favor elige otra hora.",
	}
	saveFailedLines = []string{
		"⚠️ Hubo un problema al guardar tu cita. Por favor contacta directamente con nosotros.",
	}
)
