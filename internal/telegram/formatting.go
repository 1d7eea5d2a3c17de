package telegram

import "fmt"

// pluralRu выбирает русскую форму слова по числу.
func pluralRu(n int, one, few, many string) string {
	n = n % 100
	if n >= 11 && n <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	default:
		return many
	}
}

// FormatDeviceCount форматирует количество устройств.
func FormatDeviceCount(devices int) string {
	return fmt.Sprintf("%d %s", devices, pluralRu(devices, "устройство", "устройства", "устройств"))
}

// FormatSubscriptionPeriod форматирует длительность подписки в днях.
func FormatSubscriptionPeriod(days int) string {
	return fmt.Sprintf("%d %s", days, pluralRu(days, "день", "дня", "дней"))
}

// Formatter реализует форматирование описания платежа для счетов.
type Formatter struct{}

// InvoiceDescription строит описание платежа для счета UrlPay.
func (Formatter) InvoiceDescription(devices, duration int) string {
	return fmt.Sprintf("Подписка VPN: %s, %s", FormatDeviceCount(devices), FormatSubscriptionPeriod(duration))
}
