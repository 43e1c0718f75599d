package lead_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Rrens/kiwi-chat/internal/lead"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForm_Validate(t *testing.T) {
	tests := []struct {
		name       string
		form       lead.Form
		wantErr    bool
		wantFields []string
	}{
		{"complete", lead.Form{Name: "Ada", Company: "Analytical", Email: "ada@example.com"}, false, nil},
		{"no company", lead.Form{Name: "Ada", Email: "ada@example.com"}, false, nil},
		{"empty name", lead.Form{Name: "", Email: "x@y.com"}, true, []string{"name"}},
		{"whitespace name", lead.Form{Name: "   ", Email: "x@y.com"}, true, []string{"name"}},
		{"empty email", lead.Form{Name: "Ada", Email: " \t"}, true, []string{"email"}},
		{"both empty", lead.Form{}, true, []string{"name", "email"}},
		{"name too long", lead.Form{Name: strings.Repeat("a", 201), Email: "x@y.com"}, true, []string{"name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.form.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}

			assert.ErrorIs(t, err, lead.ErrInvalidLead)
			var verr *lead.ValidationError
			require.True(t, errors.As(err, &verr))
			for _, field := range tt.wantFields {
				assert.Contains(t, verr.Fields, field)
			}
			assert.Len(t, verr.Fields, len(tt.wantFields))
		})
	}
}

func TestForm_ValidateTrims(t *testing.T) {
	form, err := lead.Form{Name: "  Ada ", Company: " Analytical\n", Email: " ada@example.com "}.Validate()
	require.NoError(t, err)

	assert.Equal(t, "Ada", form.Name)
	assert.Equal(t, "Analytical", form.Company)
	assert.Equal(t, "ada@example.com", form.Email)
}

func TestConfirmation(t *testing.T) {
	l := lead.Form{Name: "Ada", Email: "ada@example.com"}.Lead(time.Now())

	msg := lead.Confirmation(l)
	assert.Contains(t, msg, "Ada")
	assert.Contains(t, msg, "ada@example.com")
}
