package composer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aqualab/aqualab-push-server/domain"
)

// ClickAction is the routing hint the mobile app resolves to the sample
// detail screen.
const ClickAction = "OPEN_MUESTRA_DETAIL"

type template struct {
	title          string
	body           string
	requiresAction bool
}

var templates = map[domain.Status]template{
	domain.StatusQuoting: {
		title:          "Cotización en Proceso",
		body:           "Su muestra %s está siendo cotizada. Pronto recibirá más información.",
		requiresAction: true,
	},
	domain.StatusAccepted: {
		title: "Cotización Aceptada",
		body:  "¡Excelente! La cotización de su muestra %s ha sido aceptada. Procederemos con el análisis.",
	},
	domain.StatusReceived: {
		title: "Muestra Recibida",
		body:  "Su muestra %s ha sido recibida en nuestro laboratorio y está lista para análisis.",
	},
	domain.StatusInAnalysis: {
		title: "Análisis en Proceso",
		body:  "Su muestra %s está siendo analizada por nuestros expertos.",
	},
	domain.StatusFinalized: {
		title:          "Resultados Disponibles",
		body:           "¡Sus resultados están listos! Los análisis de la muestra %s han sido completados.",
		requiresAction: true,
	},
	domain.StatusRejected: {
		title:          "Muestra Rechazada",
		body:           "Su muestra %s ha sido rechazada. %s",
		requiresAction: true,
	},
}

// Compose maps a committed status transition to a notification payload.
// It is a pure function of the change: the same input always yields an
// equal payload, so a caller-level retry can never produce divergent
// content. Unknown statuses fall back to a generic payload instead of
// failing, so a newly introduced status never breaks delivery.
func Compose(change domain.StatusChange) domain.Payload {
	tpl, ok := templates[change.New]
	title := tpl.title
	var body string
	switch {
	case !ok:
		title = fmt.Sprintf("Estado Actualizado: %s", change.New)
		body = fmt.Sprintf("Su muestra %s cambió de %s a %s.", change.SampleId, change.Previous, change.New)
	case change.New == domain.StatusRejected:
		note := change.Note
		if note == "" {
			note = "Contacte al laboratorio para más información."
		}
		body = fmt.Sprintf(tpl.body, change.SampleId, note)
	default:
		body = fmt.Sprintf(tpl.body, change.SampleId)
	}

	data := map[string]string{
		"tipo":           "cambio_estado",
		"muestraId":      change.SampleId,
		"estadoAnterior": string(change.Previous),
		"estadoNuevo":    string(change.New),
		"fechaCambio":    change.ChangedAt.UTC().Format(time.RFC3339),
		"requiereAccion": strconv.FormatBool(tpl.requiresAction),
		"clickAction":    ClickAction,
	}
	if change.Note != "" {
		data["observaciones"] = change.Note
	}

	priority := domain.PriorityNormal
	if tpl.requiresAction {
		priority = domain.PriorityHigh
	}
	return domain.Payload{
		Title:    title,
		Body:     body,
		Data:     data,
		Priority: priority,
	}
}
