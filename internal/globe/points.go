// Package globe turns roster rows into the points the globe widget draws.
package globe

import (
	"fmt"

	"focusglobe/internal/models"
)

const (
	PointSize    = 0.5
	ColorCoding  = "#00f3ff"
	ColorDefault = "#ff00ff"
)

type Point struct {
	Lat     float64        `json:"lat"`
	Lng     float64        `json:"lng"`
	Size    float64        `json:"size"`
	Color   string         `json:"color"`
	Label   string         `json:"label"`
	Session models.Session `json:"userData"`
}

func Color(subject models.Subject) string {
	if subject == models.SubjectCoding {
		return ColorCoding
	}
	return ColorDefault
}

// Label renders the hover text, e.g. "💻 Alex\nStudying: coding\n\n\"debugging\"".
func Label(s models.Session) string {
	label := fmt.Sprintf("%s %s\nStudying: %s", s.Subject.Emoji(), DisplayName(s.Name), subjectName(s.Subject))
	if msg := s.MessageText(); msg != "" {
		label += "\n\n\"" + msg + "\""
	}
	return label
}

func DisplayName(name string) string {
	if name == "" {
		return "Anonymous"
	}
	return name
}

func Points(sessions []models.Session) []Point {
	points := make([]Point, 0, len(sessions))
	for _, s := range sessions {
		points = append(points, Point{
			Lat:     s.Latitude,
			Lng:     s.Longitude,
			Size:    PointSize,
			Color:   Color(s.Subject),
			Label:   Label(s),
			Session: s,
		})
	}
	return points
}

func subjectName(s models.Subject) string {
	if s == "" {
		return "Unknown"
	}
	return string(s)
}
