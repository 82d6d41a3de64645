package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// 模板名称
const (
	TplRedemptionRequestedCustomer = "redemption_requested_customer"
	TplRedemptionRequestedMerchant = "redemption_requested_merchant"
	TplRedemptionApprovedCustomer  = "redemption_approved_customer"
	TplRedemptionApprovedMerchant  = "redemption_approved_merchant"
	TplRedemptionRejectedCustomer  = "redemption_rejected_customer"
	TplRedemptionRejectedMerchant  = "redemption_rejected_merchant"
	TplPasswordReset               = "password_reset"
)

// RedemptionData 核销通知模板参数
type RedemptionData struct {
	RedemptionID string
	CustomerName string
	MerchantName string
	OfferTitle   string
	StoreName    string
}

// PasswordResetData 重置密码模板参数
type PasswordResetData struct {
	Name      string
	ResetLink string
}

const layout = `{{define "layout_start"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">{{end}}
{{define "layout_end"}}
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message from Local Deals. Please do not reply.</p>
    </div>
</body>
</html>{{end}}`

var bodies = map[string]string{
	TplRedemptionRequestedCustomer: `{{template "layout_start"}}
        <h2 style="color: #2563eb;">Redemption Requested</h2>
        <p>Hi {{.CustomerName}},</p>
        <p>Your request to redeem <strong>{{.OfferTitle}}</strong> at {{.StoreName}} has been sent to the merchant.</p>
        <p>Reference: {{.RedemptionID}}. We will email you as soon as {{.MerchantName}} responds.</p>
{{template "layout_end"}}`,
	TplRedemptionRequestedMerchant: `{{template "layout_start"}}
        <h2 style="color: #2563eb;">New Redemption Request</h2>
        <p>Hi {{.MerchantName}},</p>
        <p>{{.CustomerName}} wants to redeem <strong>{{.OfferTitle}}</strong> at {{.StoreName}}.</p>
        <p>Reference: {{.RedemptionID}}. Please approve or reject it from your dashboard.</p>
{{template "layout_end"}}`,
	TplRedemptionApprovedCustomer: `{{template "layout_start"}}
        <h2 style="color: #16a34a;">Redemption Approved</h2>
        <p>Hi {{.CustomerName}},</p>
        <p>Good news! {{.StoreName}} approved your redemption of <strong>{{.OfferTitle}}</strong>.</p>
        <p>Reference: {{.RedemptionID}}. Loyalty points have been added to your account.</p>
{{template "layout_end"}}`,
	TplRedemptionApprovedMerchant: `{{template "layout_start"}}
        <h2 style="color: #16a34a;">Redemption Approved</h2>
        <p>Hi {{.MerchantName}},</p>
        <p>You approved the redemption of <strong>{{.OfferTitle}}</strong> for {{.CustomerName}}.</p>
        <p>Reference: {{.RedemptionID}}.</p>
{{template "layout_end"}}`,
	TplRedemptionRejectedCustomer: `{{template "layout_start"}}
        <h2 style="color: #dc2626;">Redemption Not Approved</h2>
        <p>Hi {{.CustomerName}},</p>
        <p>Unfortunately {{.StoreName}} could not approve your redemption of <strong>{{.OfferTitle}}</strong>.</p>
        <p>Reference: {{.RedemptionID}}. Browse other deals near you in the app.</p>
{{template "layout_end"}}`,
	TplRedemptionRejectedMerchant: `{{template "layout_start"}}
        <h2 style="color: #dc2626;">Redemption Rejected</h2>
        <p>Hi {{.MerchantName}},</p>
        <p>You rejected the redemption of <strong>{{.OfferTitle}}</strong> for {{.CustomerName}}.</p>
        <p>Reference: {{.RedemptionID}}.</p>
{{template "layout_end"}}`,
	TplPasswordReset: `{{template "layout_start"}}
        <h2 style="color: #2563eb;">Reset your password</h2>
        <p>Hi{{if .Name}} {{.Name}}{{end}},</p>
        <p>We received a request to reset your Local Deals password. Click the button below to choose a new one:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="{{.ResetLink}}" style="background-color: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Reset Password</a>
        </div>
        <p>Or copy this link into your browser:</p>
        <p style="background-color: #f3f4f6; padding: 10px; word-break: break-all;">{{.ResetLink}}</p>
        <p>The link is valid for 30 minutes. If you did not request this, you can ignore this email.</p>
{{template "layout_end"}}`,
}

var templates = mustParse()

func mustParse() map[string]*template.Template {
	out := make(map[string]*template.Template, len(bodies))
	for name, body := range bodies {
		t := template.Must(template.New("layout").Parse(layout))
		out[name] = template.Must(t.New(name).Parse(body))
	}
	return out
}

// Render 渲染指定模板，参数中的用户输入会被 HTML 转义
func Render(name string, data interface{}) (string, error) {
	t, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("email template %q not found", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
