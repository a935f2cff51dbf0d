package mail

import (
	"bytes"
	"html/template"
)

var otpTmpl = template.Must(template.New("otp").Parse(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Hi {{.FirstName}},</h2>
    <p>Thanks for signing up. Enter this code to verify your email address:</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
    <p>The code expires in 2 minutes. If you didn't create an account, you can safely ignore this email.</p>
</body>
</html>
`))

var resetTmpl = template.Must(template.New("reset").Parse(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Hi {{.FirstName}},</h2>
    <p>You requested a password reset. Enter this code to choose a new password:</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
    <p>The code expires in 2 minutes. If you didn't request a reset, your password is unchanged.</p>
</body>
</html>
`))

type mailData struct {
	FirstName string
	Code      string
}

func renderOtpMail(firstName, code string) (string, error) {
	var buf bytes.Buffer
	if err := otpTmpl.Execute(&buf, mailData{FirstName: firstName, Code: code}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderResetMail(firstName, code string) (string, error) {
	var buf bytes.Buffer
	if err := resetTmpl.Execute(&buf, mailData{FirstName: firstName, Code: code}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
