package handlers

import (
	"net/http"

	"focusglobe/internal/models"
)

type subjectOption struct {
	Value models.Subject `json:"value"`
	Emoji string         `json:"emoji"`
}

// ListSubjects serves the subject picker options in display order.
func ListSubjects(w http.ResponseWriter, r *http.Request) {
	options := make([]subjectOption, 0, len(models.Subjects))
	for _, s := range models.Subjects {
		options = append(options, subjectOption{Value: s, Emoji: s.Emoji()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subjects": options,
	})
}
