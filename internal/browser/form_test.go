package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldArgs(t *testing.T) {
	args := fieldArgs(FormData{
		Account: "12345",
		Day:     "100.5",
		Night:   "50",
		Email:   "a@b.c",
		Phone:   "9123456789",
	})

	assert.Equal(t, "12345", args["input-account"])
	assert.Equal(t, "100.5", args["c_day"])
	assert.Equal(t, "50", args["c_night"])
	assert.Equal(t, "", args["c_peak"])
	assert.Equal(t, "a@b.c", args["email"])
	assert.Equal(t, "9123456789", args["phone"])
	assert.Equal(t, "7", args["phoneCountry"])
}

func TestFieldArgs_NoPhoneNoCountry(t *testing.T) {
	args := fieldArgs(FormData{Account: "12345", Day: "100"})
	assert.Equal(t, "", args["phone"])
	assert.Equal(t, "", args["phoneCountry"])
}

func TestContainsWidgetHost(t *testing.T) {
	assert.True(t, containsWidgetHost("https://widget.formy.app/embed/123"))
	assert.True(t, containsWidgetHost("/formy/frame.html"))
	assert.False(t, containsWidgetHost("https://www.belssb.ru/individuals/pokaz/"))
	assert.False(t, containsWidgetHost(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "no content", truncate("", 500))
	assert.Equal(t, "short", truncate("short", 500))

	long := strings.Repeat("я", 600)
	got := truncate(long, 500)
	assert.Equal(t, 500, len([]rune(got)))
}

func TestSuccessNotFoundError(t *testing.T) {
	err := &SuccessNotFoundError{Snippet: "Ошибка: проверьте номер счёта"}
	assert.Contains(t, err.Error(), "success message not found")
	assert.Contains(t, err.Error(), "проверьте номер счёта")
}
