package snippets

import "expandd/internal/trigger"

// Defaults returns the built-in snippet set: date and time stamps plus
// a signature template the user is expected to edit. User libraries
// override these by redefining the trigger.
func Defaults() []trigger.Snippet {
	return []trigger.Snippet{
		{
			Name:     "Today's Date (YYYY/MM/DD)",
			Trigger:  "ddate",
			Template: "{{date:yyyy/MM/dd}}",
			Category: "Date",
			Enabled:  true,
		},
		{
			Name:     "Today's Date (YYYYMMDD)",
			Trigger:  "yyyymmdd",
			Template: "{{date:yyyyMMdd}}",
			Category: "Date",
			Enabled:  true,
		},
		{
			Name:     "Current Time",
			Trigger:  "ttime",
			Template: "{{time:HH:mm:ss}}",
			Category: "Time",
			Enabled:  true,
		},
		{
			Name:     "Timestamp",
			Trigger:  "tstamp",
			Template: "{{date:yyyy-MM-dd HH:mm:ss}}",
			Category: "Date",
			Enabled:  true,
		},
		{
			Name:     "Signature",
			Trigger:  "sig",
			Template: "Best regards,\n\nJohn Doe\nEmail: example@example.com\nPhone: 555-123-4567",
			Category: "Template",
			Enabled:  true,
		},
	}
}
