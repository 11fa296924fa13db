package user_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmu-se/crms/core/user"
	"github.com/xmu-se/crms/tests"
)

func TestPasswordPolicy(t *testing.T) {
	validate, translator := testutil.NewValidator()

	tests := []struct {
		name    string
		data    interface{}
		wantTag string
		wantMsg string
	}{
		{name: "too short", data: reset("Ab1!"), wantTag: "pwdminlen", wantMsg: "password must contain at least 8 characters"},
		{name: "whitespace", data: reset("Abc 1234!"), wantTag: "pwdnospace"},
		{name: "all numeric", data: reset("12345678"), wantTag: "pwdnotallnum"},
		{name: "not complex", data: reset("abcdefgh1"), wantTag: "pwdcplx"},
		{name: "common", data: reset("P@ssw0rd"), wantTag: "pwdnocommon", wantMsg: "password is too common"},
		{name: "confirmation mismatch", data: user.ResetUserPassword{Token: "t", UID: "u", Password: "Xmu#2021abc", PasswordConfirm: "Xmu#2021abd"}, wantTag: "eqfield"},
		{
			name:    "similar to name",
			data:    user.NewUser{Phone: "13800000001", Password: "Alicia.Smith1", Name: "Alicia Smith"},
			wantTag: "pwdtoosim",
		},
		{name: "strong", data: reset("Xmu#2021abc")},
		{name: "strong new user", data: user.NewUser{Phone: "13800000001", Password: "Xmu#2021abc", Name: "Alicia Smith"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.data)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			require.IsType(t, validator.ValidationErrors{}, err)
			fieldErrs := err.(validator.ValidationErrors)
			require.Len(t, fieldErrs, 1)
			assert.Equal(t, tt.wantTag, fieldErrs[0].Tag())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, fieldErrs[0].Translate(translator))
			}
		})
	}
}

func reset(pwd string) user.ResetUserPassword {
	return user.ResetUserPassword{Token: "t", UID: "u", Password: pwd, PasswordConfirm: pwd}
}
