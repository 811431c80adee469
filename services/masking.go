package services

import "strings"

// MaskPhone keeps the first two and last two characters visible
// ("9876543210" -> "98******10"). Short values are fully masked.
func MaskPhone(phone string) string {
	runes := []rune(phone)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}

// MaskEmail keeps the first two characters of the local part and the whole
// domain ("john.doe@x.com" -> "jo******@x.com").
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return MaskPhone(email)
	}
	local := []rune(email[:at])
	domain := email[at:]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + domain
	}
	return string(local[:2]) + strings.Repeat("*", len(local)-2) + domain
}
