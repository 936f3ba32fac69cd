// Package i18n holds the caller-facing message catalog keyed by stable codes.
package i18n

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/strogmv/notifyevents/internal/domain"
)

var supported = []language.Tag{language.English, language.Spanish}

var matcher = language.NewMatcher(supported)

var catalog = map[string]map[string]string{
	"en": {
		domain.CodeNoQueriedData:          "The requested notification event does not exist.",
		domain.CodeNoTokenMatch:           "The application token does not match the delivery medium.",
		domain.CodeNoApplication:          "The application token is not registered.",
		domain.CodeNoMediumType:           "A delivery medium, medium name or notification type is required.",
		domain.CodeNoMedium:               "No active delivery medium matches the request.",
		domain.CodeNoTemplate:             "The notification template does not exist.",
		domain.CodeNoTemplateCtx:          "A template code and context are required when no data is sent.",
		domain.CodeUnsupportedTmpl:        "The template belongs to an unsupported notification type.",
		domain.CodeNoID:                   "The notification event id is required.",
		domain.CodeInvalidBody:            "The request body is not valid JSON.",
		domain.CodeNoSendTo:               "The recipient (sendTo) is required.",
		domain.CodeNoData:                 "The notification data is required.",
		domain.CodeNoSendToValid:          "Every recipient must be a valid email address.",
		domain.CodeNoSubject:              "The email subject is required.",
		domain.CodeNoBody:                 "The email body is required.",
		domain.CodeNoBodyType:             "The email type must be text or html.",
		domain.CodeNoBodyHTML:             "An html email body must be markup.",
		domain.CodeNoDeviceToken:          "The device token (sendTo) is required.",
		domain.CodeNoDataDeviceToken:      "The data.to device token is required.",
		domain.CodeNoPushNotification:     "Both notification and data blocks are required.",
		domain.CodeNoNotificationSound:    "The notification sound is required.",
		domain.CodeNoNotificationBody:     "The notification body is required.",
		domain.CodeNoNotificationTitle:    "The notification title is required.",
		domain.CodeNoContentAvailable:     "The content_available flag is required.",
		domain.CodeNoNotificationPriority: "The notification priority is required.",
		domain.CodeNoPayload:              "The data payload is required.",
		domain.CodeNoPayloadMessage:       "The payload message is required.",
		domain.CodeNoPayloadTitle:         "The payload title is required.",
		domain.CodeNoMessage:              "The message is required.",
		domain.CodeNoCountryCode:          "The country code is required for aws sms.",
		domain.CodeNoCampaign:             "The campaign is required for ice sms.",
		domain.CodeInvalidStatus:          "The status is not a known event status.",
		domain.CodeInvalidTransition:      "The event cannot move to the requested status.",
		domain.CodeInvalidAttempts:        "attempts must not be negative.",
		domain.CodeInvalidDateRange:       "Dates must use the YYYY-MM-DD format.",
		domain.CodeInvalidSortField:       "The sort field is not supported.",
		domain.CodeInvalidPaging:          "skip and limit must be non-negative integers.",
		domain.CodeAttachmentStorage:      "An attachment could not be stored.",
		domain.CodeRegisterEvent:          "The notification event could not be registered.",
		domain.CodeUpdateEvent:            "The notification event could not be updated.",
		domain.CodeQueryEvents:            "Notification events could not be obtained.",
		domain.CodeLiveDispatch:           "The event was registered but immediate delivery failed.",
		domain.CodeRenderTemplate:         "The notification template could not be rendered.",
		domain.CodeMessageInsert:          "Notification event registered.",
		domain.CodeMessageUpdate:          "Notification event updated.",
		domain.CodeMessageResend:          "Notification event queued for resend.",
		domain.CodeMessageObtained:        "Notification events obtained.",
	},
	"es": {
		domain.CodeNoQueriedData:          "El evento de notificación solicitado no existe.",
		domain.CodeNoTokenMatch:           "El token de la aplicación no coincide con el medio de envío.",
		domain.CodeNoApplication:          "El token de la aplicación no está registrado.",
		domain.CodeNoMediumType:           "Se requiere un medio, nombre de medio o tipo de notificación.",
		domain.CodeNoMedium:               "Ningún medio de envío activo coincide con la solicitud.",
		domain.CodeNoTemplate:             "La plantilla de notificación no existe.",
		domain.CodeNoTemplateCtx:          "Se requieren código de plantilla y contexto cuando no se envían datos.",
		domain.CodeUnsupportedTmpl:        "La plantilla pertenece a un tipo de notificación no soportado.",
		domain.CodeNoID:                   "El id del evento de notificación es obligatorio.",
		domain.CodeInvalidBody:            "El cuerpo de la solicitud no es JSON válido.",
		domain.CodeNoSendTo:               "El destinatario (sendTo) es obligatorio.",
		domain.CodeNoData:                 "Los datos de la notificación son obligatorios.",
		domain.CodeNoSendToValid:          "Cada destinatario debe ser un correo válido.",
		domain.CodeNoSubject:              "El asunto del correo es obligatorio.",
		domain.CodeNoBody:                 "El cuerpo del correo es obligatorio.",
		domain.CodeNoBodyType:             "El tipo de correo debe ser text o html.",
		domain.CodeNoBodyHTML:             "Un cuerpo html debe ser marcado.",
		domain.CodeNoDeviceToken:          "El token del dispositivo (sendTo) es obligatorio.",
		domain.CodeNoDataDeviceToken:      "El token data.to es obligatorio.",
		domain.CodeNoPushNotification:     "Los bloques notification y data son obligatorios.",
		domain.CodeNoNotificationSound:    "El sonido de la notificación es obligatorio.",
		domain.CodeNoNotificationBody:     "El cuerpo de la notificación es obligatorio.",
		domain.CodeNoNotificationTitle:    "El título de la notificación es obligatorio.",
		domain.CodeNoContentAvailable:     "El indicador content_available es obligatorio.",
		domain.CodeNoNotificationPriority: "La prioridad de la notificación es obligatoria.",
		domain.CodeNoPayload:              "El payload de datos es obligatorio.",
		domain.CodeNoPayloadMessage:       "El mensaje del payload es obligatorio.",
		domain.CodeNoPayloadTitle:         "El título del payload es obligatorio.",
		domain.CodeNoMessage:              "El mensaje es obligatorio.",
		domain.CodeNoCountryCode:          "El código de país es obligatorio para sms aws.",
		domain.CodeNoCampaign:             "La campaña es obligatoria para sms ice.",
		domain.CodeInvalidStatus:          "El estado no es un estado de evento conocido.",
		domain.CodeInvalidTransition:      "El evento no puede pasar al estado solicitado.",
		domain.CodeInvalidAttempts:        "attempts no puede ser negativo.",
		domain.CodeInvalidDateRange:       "Las fechas deben usar el formato AAAA-MM-DD.",
		domain.CodeInvalidSortField:       "El campo de ordenamiento no está soportado.",
		domain.CodeInvalidPaging:          "skip y limit deben ser enteros no negativos.",
		domain.CodeAttachmentStorage:      "No se pudo almacenar un adjunto.",
		domain.CodeRegisterEvent:          "No se pudo registrar el evento de notificación.",
		domain.CodeUpdateEvent:            "No se pudo actualizar el evento de notificación.",
		domain.CodeQueryEvents:            "No se pudieron obtener los eventos de notificación.",
		domain.CodeLiveDispatch:           "El evento se registró pero el envío inmediato falló.",
		domain.CodeRenderTemplate:         "No se pudo generar la plantilla de notificación.",
		domain.CodeMessageInsert:          "Evento de notificación registrado.",
		domain.CodeMessageUpdate:          "Evento de notificación actualizado.",
		domain.CodeMessageResend:          "Evento de notificación encolado para reenvío.",
		domain.CodeMessageObtained:        "Eventos de notificación obtenidos.",
	},
}

// Lang picks the best supported base language from an Accept-Language header.
func Lang(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return "en"
	}
	_, idx, _ := matcher.Match(tags...)
	base, _ := supported[idx].Base()
	return base.String()
}

// Message returns the localized text for code, falling back to English and then to the code.
func Message(lang, code string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if msgs, ok := catalog[lang]; ok {
		if m, ok := msgs[code]; ok {
			return m
		}
	}
	if m, ok := catalog["en"][code]; ok {
		return m
	}
	return code
}
