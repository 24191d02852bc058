package ai

import "strings"

// Парсеры вердиктов модели. Ответ модели - недоверенный свободный текст,
// поэтому отображение тотально: любой строке соответствует результат,
// а неузнанный текст сводится к безопасной ветке.

// ParseBool приводит сырой ответ классификатора к булеву вердикту.
// Принимаются только полные формы "true", "'true'" и "\"true\"" в
// произвольном регистре; кавычка внутри слова или непарная кавычка -
// не вердикт, а мусор, и сомнительный ход консервативно отклоняется.
func ParseBool(reply string) bool {
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "true", "'true'", `"true"`:
		return true
	default:
		return false
	}
}

// ParseDamage приводит сырой ответ классификатора урона к величине 0-5.
// Кавычки вычищаются в любом месте строки, затем не-нулевой урон
// засчитывается только за точный ответ одной из цифр "1".."5"; любой другой
// текст (в том числе "0" и неразборчивые ответы) дает 0.
// Занижение урона - безопасный дефолт, завышение невозможно.
func ParseDamage(reply string) int {
	switch stripQuotes(reply) {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	default:
		return 0
	}
}

// stripQuotes снимает все кавычки, пробелы и регистр с ответа модели.
func stripQuotes(reply string) string {
	s := strings.ReplaceAll(reply, `"`, "")
	s = strings.ReplaceAll(s, "'", "")
	return strings.ToLower(strings.TrimSpace(s))
}
