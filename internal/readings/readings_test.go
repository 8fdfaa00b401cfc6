package readings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTariff(t *testing.T) {
	for _, want := range Tariffs {
		got, err := ParseTariff(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseTariff("double")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tariff")
}

func TestIsNumeric(t *testing.T) {
	valid := []string{"123", "123.45", "123,45", "0", " 42 ", "1,5"}
	for _, s := range valid {
		assert.True(t, IsNumeric(s), "expected %q to be numeric", s)
	}

	invalid := []string{"", "abc", "12.34.56", "12,34,56", "-5", "1e5", "12.", ".5", "12 34"}
	for _, s := range invalid {
		assert.False(t, IsNumeric(s), "expected %q to be rejected", s)
	}
}

func TestValidate_SingleTariff(t *testing.T) {
	// Only day is required; night/peak are ignored even when garbage.
	require.NoError(t, Validate(TariffSingle, Set{Day: "1234"}))
	require.NoError(t, Validate(TariffSingle, Set{Day: "1234", Night: "abc", Peak: ""}))

	err := Validate(TariffSingle, Set{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "day")

	err = Validate(TariffSingle, Set{Day: "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "day")
}

func TestValidate_TwoZone(t *testing.T) {
	require.NoError(t, Validate(TariffTwoZone, Set{Day: "100", Night: "50"}))
	require.NoError(t, Validate(TariffTwoZone, Set{Day: "100,5", Night: "50.25"}))

	err := Validate(TariffTwoZone, Set{Day: "100"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "night")

	err = Validate(TariffTwoZone, Set{Day: "100", Night: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "night")
}

func TestValidate_ThreeZone(t *testing.T) {
	require.NoError(t, Validate(TariffThreeZone, Set{Day: "100", Night: "50", Peak: "75"}))

	cases := []struct {
		name string
		set  Set
		want string
	}{
		{"missing day", Set{Night: "50", Peak: "75"}, "day"},
		{"missing night", Set{Day: "100", Peak: "75"}, "night"},
		{"missing peak", Set{Day: "100", Night: "50"}, "peak"},
		{"invalid peak", Set{Day: "100", Night: "50", Peak: "12.34.56"}, "peak"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(TariffThreeZone, tc.set)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "123.45", Normalize("123,45"))
	assert.Equal(t, "123.45", Normalize(" 123.45 "))
	assert.Equal(t, "", Normalize(""))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "9123456789", NormalizePhone("+7 (912) 345-67-89"))
	assert.Equal(t, "9123456789", NormalizePhone("89123456789"))
	assert.Equal(t, "9123456789", NormalizePhone("9123456789"))
	assert.Equal(t, "12345", NormalizePhone("123-45"))
	assert.Equal(t, "", NormalizePhone("abc"))
	assert.Equal(t, "", NormalizePhone(""))
}

func TestAfterCutoff(t *testing.T) {
	assert.False(t, AfterCutoff(time.Date(2025, 3, 25, 12, 0, 0, 0, time.UTC)))
	assert.True(t, AfterCutoff(time.Date(2025, 3, 26, 0, 0, 0, 0, time.UTC)))
	assert.False(t, AfterCutoff(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
}
