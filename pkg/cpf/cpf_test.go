package cpf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrip(t *testing.T) {
	assert.Equal(t, "11144477735", Strip("111.444.777-35"))
	assert.Equal(t, "11144477735", Strip(" 111 444 777 35 "))
	assert.Equal(t, "", Strip("abc"))
}

func TestValid(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"formatted valid", "111.444.777-35", true},
		{"bare valid", "11144477735", true},
		{"another valid", "123.456.789-09", true},
		{"wrong check digit", "111.444.777-36", false},
		{"all same digits", "111.111.111-11", false},
		{"all zeros", "000.000.000-00", false},
		{"too short", "1114447773", false},
		{"too long", "111444777350", false},
		{"empty", "", false},
		{"letters", "111.444.77a-35", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Valid(tc.in))
		})
	}
}
