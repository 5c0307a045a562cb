package auth

import "github.com/go-auth-nosql/internal/domain"

// Transition names, also used as metric labels.
const (
	TransitionSignup             = "signup"
	TransitionVerifyEmail        = "verify_email"
	TransitionResendVerification = "resend_verification"
	TransitionLogin              = "login"
	TransitionForgotPassword     = "forgot_password"
	TransitionResetPassword      = "reset_password"
	TransitionLogout             = "logout"
	TransitionCheckAuth          = "check_auth"
)

// preconditions holds the state checks of transitions that act on an existing
// record. Transitions absent from the map accept any state.
var preconditions = map[string]func(domain.State) bool{
	TransitionVerifyEmail:        func(s domain.State) bool { return !s.Verified },
	TransitionResendVerification: func(s domain.State) bool { return !s.Verified },
	TransitionResetPassword:      func(s domain.State) bool { return s.ResetPending },
}

func permitted(transition string, s domain.State) bool {
	check, ok := preconditions[transition]
	return !ok || check(s)
}
