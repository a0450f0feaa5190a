package validation

import (
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"
)

// PageIDPattern определяет допустимый формат идентификатора страницы
// Только латинские буквы (a-z, A-Z), цифры (0-9), '_' и '-'
// Длина: 1-64 символа
var PageIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

const (
	// MaxPageIDLen максимальная длина идентификатора страницы
	MaxPageIDLen = 64
	// MaxDisplayNameLen максимальная длина имени участника (в символах)
	MaxDisplayNameLen = 64
)

// ValidatePageID проверяет идентификатор страницы.
// Идентификатор попадает в URL и в имя bucket локального кэша.
func ValidatePageID(pageID string) error {
	if pageID == "" {
		return fmt.Errorf("page id cannot be empty")
	}

	if len(pageID) > MaxPageIDLen {
		return fmt.Errorf("page id must not exceed %d characters", MaxPageIDLen)
	}

	if !PageIDPattern.MatchString(pageID) {
		return fmt.Errorf("page id can only contain letters (a-z, A-Z), numbers (0-9), underscores (_) and dashes (-)")
	}

	return nil
}

// ValidateDisplayName проверяет имя, показываемое рядом с курсором участника
func ValidateDisplayName(name string) error {
	if name == "" {
		return fmt.Errorf("display name cannot be empty")
	}

	if utf8.RuneCountInString(name) > MaxDisplayNameLen {
		return fmt.Errorf("display name must not exceed %d characters", MaxDisplayNameLen)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("display name cannot contain control characters")
		}
	}

	return nil
}
