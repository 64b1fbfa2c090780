package importer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"umrah-backoffice/internal/domain"
)

// Classifier decides whether a cell holds a person's name.
type Classifier interface {
	LooksLikeName(cell string) bool
}

// DefaultDenylist holds the structural words found in rooming sheets: room
// types, cities, section headers and agency branding.
var DefaultDenylist = []string{
	"خماسي", "رباعي", "ثلاثي", "ثنائي", "فردي",
	"مكة", "المدينة", "Makkah", "Madinah",
	"رجال", "نساء", "غرفة", "غرفه", "رقم",
	"Room", "Type", "Hotel", "Floor",
	"تسكين", "لائحة", "تقرير", "بواسطة",
	"Beausejour", "Voyage", "Unknown", "Name",
}

// DenylistClassifier accepts cells of at least MinLength runes with no digit,
// no denylisted substring and at least two words longer than one rune.
type DenylistClassifier struct {
	Denylist  []string
	MinLength int
	MinWords  int
}

// NewDenylistClassifier returns the classifier used by the smart scan.
func NewDenylistClassifier() DenylistClassifier {
	return DenylistClassifier{Denylist: DefaultDenylist, MinLength: 5, MinWords: 2}
}

func (c DenylistClassifier) LooksLikeName(cell string) bool {
	s := strings.TrimSpace(cell)
	if utf8.RuneCountInString(s) < c.MinLength {
		return false
	}
	if strings.IndexFunc(s, unicode.IsDigit) >= 0 {
		return false
	}
	for _, word := range c.Denylist {
		if strings.Contains(s, word) {
			return false
		}
	}
	words := 0
	for _, f := range strings.Fields(s) {
		if utf8.RuneCountInString(f) > 1 {
			words++
		}
	}
	return words >= c.MinWords
}

// Scan walks every cell in row order and returns one client per distinct
// name. Duplicates are matched exactly after trimming.
func Scan(rows [][]string, classifier Classifier) []domain.Client {
	seen := make(map[string]struct{})
	clients := make([]domain.Client, 0)
	for _, row := range rows {
		for _, cell := range row {
			name := strings.TrimSpace(cell)
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			if !classifier.LooksLikeName(name) {
				continue
			}
			seen[name] = struct{}{}
			clients = append(clients, domain.Client{
				Name:  name,
				Email: domain.PlaceholderEmail(name),
			})
		}
	}
	return clients
}
