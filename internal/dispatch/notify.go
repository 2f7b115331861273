package dispatch

import (
	"fmt"

	"github.com/whisper/modbot/internal/cooldown"
)

const (
	colorWarn = 0xFFFF00
	colorMute = 0xFF0000
)

// muteReason is the audit-log reason attached to a timeout.
func muteReason(policy cooldown.Policy) string {
	if policy == cooldown.PolicyLink {
		return "نشر روابط"
	}
	return "ألفاظ مسيئة"
}

func warnNotice(policy cooldown.Policy, mention string) Notification {
	if policy == cooldown.PolicyLink {
		return Notification{
			Title: "⚠️ تحذير من الروابط",
			Body:  fmt.Sprintf("%s نشر الروابط ممنوع. المرة القادمة سيتم اسكاتك.", mention),
			Color: colorWarn,
		}
	}
	return Notification{
		Title: "⚠️ تحذير من الألفاظ",
		Body:  fmt.Sprintf("%s الألفاظ المسيئة ممنوعة. المرة القادمة سيتم اسكاتك.", mention),
		Color: colorWarn,
	}
}

func muteNotice(policy cooldown.Policy, mention string) Notification {
	if policy == cooldown.PolicyLink {
		return Notification{
			Title: "⛔ تم اسكاتك",
			Body:  fmt.Sprintf("%s تم اسكاتك بسبب تكرار نشر الروابط.", mention),
			Color: colorMute,
		}
	}
	return Notification{
		Title: "⛔ تم اسكاتك",
		Body:  fmt.Sprintf("%s تم اسكاتك بسبب تكرار الألفاظ المسيئة.", mention),
		Color: colorMute,
	}
}

func muteErrorNotice(err error) Notification {
	return Notification{
		Title: fmt.Sprintf("⚠️ خطأ في الاسكات: %v", err),
		Color: colorMute,
	}
}
