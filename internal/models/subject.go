package models

type Subject string

const (
	SubjectCoding     Subject = "coding"
	SubjectMath       Subject = "math"
	SubjectScience    Subject = "science"
	SubjectLiterature Subject = "literature"
	SubjectLanguages  Subject = "languages"
	SubjectArt        Subject = "art"
	SubjectMusic      Subject = "music"
	SubjectOther      Subject = "other"
)

// Subjects lists every subject in display order.
var Subjects = []Subject{
	SubjectCoding,
	SubjectMath,
	SubjectScience,
	SubjectLiterature,
	SubjectLanguages,
	SubjectArt,
	SubjectMusic,
	SubjectOther,
}

var subjectEmoji = map[Subject]string{
	SubjectCoding:     "💻",
	SubjectMath:       "🔢",
	SubjectScience:    "🔬",
	SubjectLiterature: "📚",
	SubjectLanguages:  "🌍",
	SubjectArt:        "🎨",
	SubjectMusic:      "🎵",
	SubjectOther:      "📖",
}

func (s Subject) Valid() bool {
	_, ok := subjectEmoji[s]
	return ok
}

// Emoji falls back to the "other" glyph for unknown subjects.
func (s Subject) Emoji() string {
	if e, ok := subjectEmoji[s]; ok {
		return e
	}
	return subjectEmoji[SubjectOther]
}
