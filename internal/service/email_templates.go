package service

import (
	"fmt"
	"time"
)

func verificationCodeEmailTemplate(code, appName string, validity time.Duration) (string, string) {
	subject := fmt.Sprintf("Your %s verification code", appName)
	body := fmt.Sprintf(`Your verification code is: %s

Enter this code to confirm your email address. It expires in %d minutes and can only be used once.

If you didn't create an account, you can safely ignore this email.

Best,
The %s Team`, code, int(validity.Minutes()), appName)

	return subject, body
}

func forgotPasswordCodeEmailTemplate(code, appName string, validity time.Duration) (string, string) {
	subject := fmt.Sprintf("Reset your password for %s", appName)
	body := fmt.Sprintf(`Your password reset code is: %s

Enter this code together with your new password. It expires in %d minutes and can only be used once.

If you didn't request this, you can safely ignore this email. Your password won't be changed.

Best,
The %s Team`, code, int(validity.Minutes()), appName)

	return subject, body
}
