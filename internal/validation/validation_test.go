package validation

import (
	"testing"

	"leaseflow/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CompilesAllSchemas(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	for _, name := range []string{
		"submit", "route_to_financier", "request_info", "respond_info", "create_offer",
		"approve_offer", "accept_offer", "reject_offer", "send_contract", "sign_contract",
		"close", "cancel",
		SchemaApplication, SchemaPublicApplication, SchemaMessage, SchemaContractDraft, SchemaContractRequest,
		SchemaContractRequestResolve, SchemaUser,
	} {
		assert.True(t, v.Has(name), name)
	}
}

func TestValidate(t *testing.T) {
	v := MustNew()

	tests := []struct {
		name   string
		schema string
		body   string
		valid  bool
	}{
		{"empty submit", "submit", "", true},
		{"submit with junk", "submit", `{"status":"SIGNED"}`, false},
		{"route", "route_to_financier", `{"financier_id":"6f1c1a40-3f7e-4d39-9a38-1f7b8d1f2a11"}`, true},
		{"route bad uuid", "route_to_financier", `{"financier_id":"nope"}`, false},
		{"route missing", "route_to_financier", `{}`, false},
		{"request info", "request_info", `{"message":"send tax returns","requested_documents":["tax_return"]}`, true},
		{"request info empty", "request_info", `{"message":""}`, false},
		{"respond with attachments only", "respond_info", `{"reply_to":"6f1c1a40-3f7e-4d39-9a38-1f7b8d1f2a11","attachments":["doc-1"]}`, true},
		{"respond without content", "respond_info", `{"reply_to":"6f1c1a40-3f7e-4d39-9a38-1f7b8d1f2a11"}`, false},
		{"offer", "create_offer", `{"offer":{"monthly_payment":"512.40","term_months":36,"valid_until":"2025-12-31T00:00:00Z"}}`, true},
		{"offer numeric money", "create_offer", `{"offer":{"monthly_payment":512.4,"term_months":36}}`, true},
		{"offer bad money string", "create_offer", `{"offer":{"monthly_payment":"lots","term_months":36}}`, false},
		{"offer zero term", "create_offer", `{"offer":{"monthly_payment":"10","term_months":0}}`, false},
		{"accept", "accept_offer", `{}`, true},
		{"reject with reason", "reject_offer", `{"reason":"too expensive"}`, true},
		{"send contract with terms", "send_contract", `{"contract":{"lessor":{"company_name":"Rahoitus Oy"},"monthly_rent":"520"}}`, true},
		{"send contract unknown field", "send_contract", `{"contract":{"rent":"520"}}`, false},
		{"sign", "sign_contract", `{"signer_name":"Maija"}`, true},
		{"sign without name", "sign_contract", `{}`, false},
		{"close", "close", `{"activated_at":"2025-01-01T08:00:00Z"}`, true},
		{"close bad time", "close", `{"activated_at":"yesterday"}`, false},
		{"application", SchemaApplication, `{"type":"LEASING","company_name":"Konepaja Oy","business_id":"1234567-8","contact_email":"a@b.fi","requested_amount":"50000"}`, true},
		{"application without contact email", SchemaApplication, `{"type":"LEASING","company_name":"Konepaja Oy","business_id":"1234567-8","requested_amount":"50000"}`, true},
		{"public intake without contact email", SchemaPublicApplication, `{"type":"LEASING"}`, false},
		{"public intake", SchemaPublicApplication, `{"contact_email":"a@b.fi"}`, true},
		{"application bad business id", SchemaApplication, `{"type":"LEASING","company_name":"Konepaja Oy","business_id":"123","contact_email":"a@b.fi","requested_amount":"50000"}`, false},
		{"contract request", SchemaContractRequest, `{"type":"EARLY_PAYOFF","message":"payoff quote please"}`, true},
		{"contract request without message", SchemaContractRequest, `{"type":"ANNUAL_REPORT"}`, false},
		{"contract request blank message", SchemaContractRequest, `{"type":"EARLY_PAYOFF","message":"   "}`, false},
		{"resolve", SchemaContractRequestResolve, `{"action":"complete","response":"ok"}`, true},
		{"resolve unknown action", SchemaContractRequestResolve, `{"action":"approve"}`, false},
		{"user", SchemaUser, `{"email":"fin@example.com","role":"FINANCIER"}`, true},
		{"message", SchemaMessage, `{"body":"hello"}`, true},
		{"empty message", SchemaMessage, `{}`, false},
		{"not json", "cancel", `{`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.schema, []byte(tt.body))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestValidate_ListsEveryProblem(t *testing.T) {
	v := MustNew()

	err := v.Validate(SchemaApplication, []byte(`{"type":"RENTAL"}`))
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	problems, ok := appErr.Details["errors"].([]string)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(problems), 5)
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := MustNew().Validate("teleport", nil)
	assert.ErrorIs(t, err, apperror.ErrInternal)
}
