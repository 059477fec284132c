package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"budget/internal/core"
	"budget/internal/log"
)

// fieldLabels are the user-facing names of form fields.
var fieldLabels = map[string]string{
	"date":        "Date",
	"description": "Description",
	"amount":      "Montant",
	"category":    "Catégorie",
	"account":     "Compte",
	"type":        "Type",
	"from":        "Début",
	"to":          "Fin",
}

// fieldMessage turns one rejected field into an actionable French message.
func fieldMessage(fe core.FieldError) string {
	var msg string
	switch {
	case errors.Is(fe.Err, core.ErrMissingField):
		msg = "champ obligatoire"
	case errors.Is(fe.Err, core.ErrInvalidDate):
		msg = "date invalide, format attendu AAAA-MM-JJ"
	case errors.Is(fe.Err, core.ErrInvalidAmount):
		msg = "montant invalide, par exemple 12.50"
	case errors.Is(fe.Err, core.ErrUnknownCategory):
		msg = "catégorie inconnue"
	case errors.Is(fe.Err, core.ErrUnknownAccount):
		msg = "compte inconnu"
	case errors.Is(fe.Err, core.ErrUnknownType):
		msg = "type inconnu"
	case errors.Is(fe.Err, core.ErrDescriptionTooLong):
		msg = "description trop longue (" + strconv.Itoa(core.MaxDescriptionLength) + " caractères max)"
	case errors.Is(fe.Err, core.ErrInvalidRange):
		msg = "la date de fin doit suivre la date de début"
	default:
		msg = fe.Err.Error()
	}
	label := fieldLabels[fe.Field]
	if label == "" {
		label = fe.Field
	}
	return label + " : " + msg
}

// fieldMessages maps each rejected field to its message.
func fieldMessages(ve *core.ValidationError) map[string]string {
	out := make(map[string]string, len(ve.Fields))
	for _, fe := range ve.Fields {
		if _, seen := out[fe.Field]; !seen {
			out[fe.Field] = fieldMessage(fe)
		}
	}
	return out
}

// userMessage flattens err into one line for banners.
func userMessage(err error) string {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		parts := make([]string, 0, len(ve.Fields))
		for _, fe := range ve.Fields {
			parts = append(parts, fieldMessage(fe))
		}
		return strings.Join(parts, " ; ")
	}
	var ce *core.StorageCorruptError
	if errors.As(err, &ce) {
		return "Les données enregistrées sont illisibles (" + ce.Error() + "). Corrigez le fichier puis rechargez la page."
	}
	if core.IsUnavailable(err) {
		return "Le stockage est momentanément indisponible. Aucune modification n'a été enregistrée, réessayez."
	}
	return "Erreur interne."
}

// statusFor maps ledger errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	case core.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorType(err error) string {
	switch {
	case core.IsValidation(err):
		return log.ErrorTypeValidation
	case core.IsCorrupt(err):
		return log.ErrorTypeCorrupt
	case core.IsUnavailable(err):
		return log.ErrorTypeUnavailable
	default:
		return log.ErrorTypeInternal
	}
}

// errorBuilder is the fragment equivalent of statusFor.
func errorBuilder(err error) *HTMXResponseBuilder {
	msg := userMessage(err)
	var b *HTMXResponseBuilder
	switch statusFor(err) {
	case http.StatusUnprocessableEntity:
		b = UnprocessableEntityError(msg)
	case http.StatusServiceUnavailable:
		b = ServiceUnavailableError(msg)
	default:
		b = InternalServerError(msg)
	}
	return b.TriggerErrorNotification(msg)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// sanitizeInput removes control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
