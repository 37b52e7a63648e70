package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Catalog keys double as the English text.
const (
	titleKey = "Touching face"
	bodyKey  = "A hand is touching the face (%d%% confidence)"
)

var supported = []language.Tag{language.English, language.Vietnamese}

var matcher = language.NewMatcher(supported)

func init() {
	message.SetString(language.English, titleKey, titleKey)
	message.SetString(language.English, bodyKey, bodyKey)
	message.SetString(language.Vietnamese, titleKey, "Bé đang chạm tay vào mặt")
	message.SetString(language.Vietnamese, bodyKey, "Bé đang chạm tay vào mặt (độ tin cậy %d%%)")
}

// Messages renders notification text in one language.
type Messages struct {
	printer *message.Printer
}

// NewMessages picks the closest supported language to lang (a BCP 47 tag),
// falling back to English.
func NewMessages(lang string) Messages {
	tag, _, _ := matcher.Match(language.Make(lang))
	base, _ := tag.Base()
	for _, s := range supported {
		if sb, _ := s.Base(); sb == base {
			tag = s
			break
		}
	}
	return Messages{printer: message.NewPrinter(tag)}
}

// Title returns the notification title.
func (m Messages) Title() string {
	return m.printer.Sprintf(titleKey)
}

// Body returns the notification body for a touching confidence in [0, 1].
func (m Messages) Body(confidence float64) string {
	return m.printer.Sprintf(bodyKey, int(confidence*100+0.5))
}
