package mailer

import (
	"fmt"
	"html"
)

// welcomeTemplate renders the welcome email body.
func welcomeTemplate(name string) string {
	return fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Welcome, %s!</h2>
  <p>Your account has been created. You can sign in with the email and
  password you registered with.</p>
  <p>If you did not create this account, please contact support.</p>
</div>`, html.EscapeString(name))
}

// passwordResetTemplate renders the recovery email carrying the newly
// generated password.  The user is expected to change it after signing
// back in.
func passwordResetTemplate(name, newPassword string) string {
	return fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Password reset</h2>
  <p>Hi %s,</p>
  <p>Your password was reset as requested. Sign in with the temporary
  password below and change it right away:</p>
  <p style="font-size: 18px; font-weight: bold; letter-spacing: 1px;">%s</p>
  <p>All existing sessions were signed out.</p>
  <p>If you did not request this reset, contact support immediately.</p>
</div>`, html.EscapeString(name), html.EscapeString(newPassword))
}
