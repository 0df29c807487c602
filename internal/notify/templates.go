package notify

import "html/template"

var emailTemplates = template.Must(template.New("email").Parse(`
{{define "header"}}<!DOCTYPE html><html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"></head>
<body style="margin:0;padding:0;background:#0a0a0a;font-family:Arial,Helvetica,sans-serif;">
<table width="100%" cellpadding="0" cellspacing="0"><tr><td align="center" style="padding:32px 16px;">
<table width="560" cellpadding="0" cellspacing="0" style="background:#141414;border-radius:8px;color:#e5e5e5;">
<tr><td style="padding:24px 32px;border-bottom:1px solid #262626;"><h1 style="margin:0;font-size:20px;color:#ffffff;">{{.GymName}}</h1></td></tr>
<tr><td style="padding:24px 32px;font-size:14px;line-height:1.6;">{{end}}

{{define "footer"}}</td></tr>
<tr><td style="padding:16px 32px;border-top:1px solid #262626;">
<p style="color:#666;font-size:11px;margin:0;line-height:1.6;">This is an automated message from {{.GymName}}. If you believe this was sent in error, please contact us at the gym.</p>
</td></tr></table></td></tr></table></body></html>{{end}}

{{define "welcome"}}{{template "header" .}}
<p>Dear {{.Name}},</p>
<p>Welcome to {{.GymName}}. Your membership is now active.</p>
<p>Registered phone: <strong>{{.Phone}}</strong><br>First payment due: <strong>{{.DueDate}}</strong></p>
<p>Monthly fees are paid in cash at the front desk.</p>
<p>{{.GymName}} Team</p>
{{template "footer" .}}{{end}}

{{define "payment_due"}}{{template "header" .}}
<p>Dear {{.Name}},</p>
<p>This is a reminder that your monthly membership fee of <strong>LKR {{.Amount}}</strong> is due on <strong>{{.DueDate}}</strong>.</p>
<p>Please make your cash payment at the gym before the due date.</p>
<p>{{.GymName}} Team</p>
{{template "footer" .}}{{end}}

{{define "birthday"}}{{template "header" .}}
<p>Dear {{.Name}},</p>
<p>Wishing you a very happy birthday from all of us at {{.GymName}}.</p>
<p>We hope this year brings you great health, strength, and success in all your fitness goals.</p>
<p>{{.GymName}} Team</p>
{{template "footer" .}}{{end}}

{{define "plan"}}{{template "header" .}}
<p>Dear {{.Name}},</p>
<p>Your trainer has prepared a new {{.Kind}} for you{{if .Title}}: <strong>{{.Title}}</strong>{{end}}.</p>
<div style="background:#1f1f1f;border-radius:6px;padding:16px;white-space:pre-wrap;">{{.Content}}</div>
<p>Ask us at the gym if anything is unclear.</p>
<p>{{.GymName}} Team</p>
{{template "footer" .}}{{end}}

{{define "receipt"}}{{template "header" .}}
<p>Dear {{.Name}},</p>
<p>Thank you. We have received your payment.</p>
<table cellpadding="4" cellspacing="0" style="font-size:14px;color:#e5e5e5;">
<tr><td>Receipt number</td><td><strong>{{.ReceiptNumber}}</strong></td></tr>
<tr><td>Period</td><td>{{.Period}}</td></tr>
<tr><td>Amount</td><td>LKR {{.Amount}}</td></tr>
<tr><td>Paid on</td><td>{{.PaidAt}}</td></tr>
{{if .CollectedBy}}<tr><td>Collected by</td><td>{{.CollectedBy}}</td></tr>{{end}}
<tr><td>Next due date</td><td><strong>{{.DueDate}}</strong></td></tr>
</table>
<p>{{.GymName}} Team</p>
{{template "footer" .}}{{end}}
`))
