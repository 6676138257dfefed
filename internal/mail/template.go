// Package mail implements the notification dispatcher: parameterized email
// rendering and throttled batch delivery over an outbound transport.
//
// Templates use the {$name} placeholder syntax, with a tolerated legacy
// {name} form. Rendering is a pure function of template and variable map;
// variables are never injected into any implicit scope. All substituted
// values are HTML-escaped except the redemption link, which is URL-escaped
// when inserted into an href attribute and HTML-escaped when shown as text —
// the dual handling prevents both markup injection and broken links.
package mail

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
)

// Template variable names available to reminder emails.
const (
	VarProductName    = "product_name"
	VarRedemptionLink = "redemption_link"
	VarSiteName       = "site_name"
	VarBlogname       = "blogname"
	VarUserLogin      = "user_login"
	VarUserEmail      = "user_email"
	VarUserFirstName  = "user_first_name"
	VarUserLastName   = "user_last_name"
)

var (
	// hrefQuotedRe matches the redemption link placeholder inside a quoted
	// href attribute, in both {$x} and legacy {x} forms.
	hrefQuotedRe = regexp.MustCompile(`href=["']\{\$?redemption_link\}["']`)
	// hrefBareRe catches the unquoted-attribute edge case.
	hrefBareRe = regexp.MustCompile(`href=\{\$?redemption_link\}`)
)

// Render substitutes the variable map into content. Non-link values are
// HTML-escaped; the redemption link gets href/text dual escaping. Unknown
// placeholders are left in place.
func Render(content string, vars map[string]string) string {
	for key, val := range vars {
		if key == VarRedemptionLink {
			continue
		}
		esc := html.EscapeString(val)
		content = strings.ReplaceAll(content, "{$"+key+"}", esc)
		content = strings.ReplaceAll(content, "{"+key+"}", esc)
	}

	if link, ok := vars[VarRedemptionLink]; ok {
		escURL := escapeURL(link)
		escText := html.EscapeString(link)

		content = hrefQuotedRe.ReplaceAllLiteralString(content, `href="`+escURL+`"`)
		content = hrefBareRe.ReplaceAllLiteralString(content, `href="`+escURL+`"`)
		content = strings.ReplaceAll(content, "{$redemption_link}", escText)
		content = strings.ReplaceAll(content, "{redemption_link}", escText)
	}

	return content
}

// escapeURL normalizes a link for use inside an href attribute: the URL is
// re-encoded through net/url and then entity-escaped for the attribute
// context. Unparseable input degrades to a plain HTML escape.
func escapeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return html.EscapeString(raw)
	}
	return html.EscapeString(u.String())
}

// defaultHeader opens the HTML document and the content container; the body
// template provides the message, and defaultFooter closes everything.
const defaultHeader = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{$product_name}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin-bottom: 20px; }
        .content { background-color: #ffffff; padding: 20px; border-radius: 8px; border: 1px solid #e9ecef; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #e9ecef; color: #6c757d; font-size: 14px; }
    </style>
</head>
<body>
    <div class="header">
        <h1 style="margin: 0; color: #2c3e50;">Gift Membership Purchase</h1>
    </div>
    <div class="content">
`

// DefaultReminderBody is the built-in reminder message, used when no custom
// body is configured.
const DefaultReminderBody = `<div style="font-size: 18px; font-weight: bold; margin-bottom: 20px;">Hello!</div>

<p>You have purchased a gift membership for <strong>{$product_name}</strong>.</p>

<div style="background-color: #f3e5f5; padding: 15px; border-radius: 6px; border-left: 4px solid #9c27b0; margin: 20px 0;">
    <strong>The recipient can redeem this gift by visiting:</strong><br>
    <a href="{$redemption_link}" style="color: #9c27b0; text-decoration: none; font-weight: bold;">{$redemption_link}</a>
</div>

<p style="font-style: italic; color: #27ae60;">Thank you for your purchase!</p>
`

const defaultFooter = `    </div>
</body>
</html>`

// ReminderHTML renders the full reminder document: header, the given body
// (or the built-in one when empty), and footer, with vars substituted.
func ReminderHTML(body string, vars map[string]string) string {
	if strings.TrimSpace(body) == "" {
		body = DefaultReminderBody
	}
	return Render(defaultHeader+body+defaultFooter, vars)
}

// ReminderSubject renders a custom subject template, or falls back to the
// standard subject line for the product.
func ReminderSubject(subject, productName string, vars map[string]string) string {
	if strings.TrimSpace(subject) != "" {
		return Render(subject, vars)
	}
	return fmt.Sprintf("Reminder: Your Gift Purchase - %s", productName)
}
