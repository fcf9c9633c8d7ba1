package auth

import (
	errors "github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/internal/core/common/validation"
)

const MinPasswordLength = 8

// SignInDTO is the transport shape used by the HTTP handler to accept sign-in requests.
type SignInDTO struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func (d SignInDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(MinPasswordLength)
	return v.Validate()
}

// SignInFailure is the notice shown when the backend refuses a sign-in.
type SignInFailure struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

const (
	CodeInvalidEmailOrPassword = "INVALID_EMAIL_OR_PASSWORD"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeInternalServerError    = "INTERNAL_SERVER_ERROR"
)

var signInFailures = map[string]SignInFailure{
	CodeInvalidEmailOrPassword: {
		Title:       "Invalid email or password",
		Description: "Please check your email and password and try again.",
	},
	CodeInvalidCredentials: {
		Title:       "Invalid credentials",
		Description: "Please check your email and password and try again.",
	},
	CodeInternalServerError: {
		Title:       "Internal server error",
		Description: "Please try again later.",
	},
}

// DescribeSignInError maps a backend error code to its notice. Unknown codes get
// the internal server error notice.
func DescribeSignInError(code string) SignInFailure {
	if f, ok := signInFailures[code]; ok {
		return f
	}
	return signInFailures[CodeInternalServerError]
}

type SignInResponse struct {
	Redirect string      `json:"redirect"`
	User     interface{} `json:"user,omitempty"`
}

type SignOutResponse struct {
	Redirect string `json:"redirect"`
	Message  string `json:"message"`
}
