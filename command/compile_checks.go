package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ReplayDeadLetterMessage] = (*ReplayDeadLetterCommand)(nil)
	_ gocmd.Commander[RetriggerRunMessage]     = (*RetriggerRunCommand)(nil)
	_ gocmd.Commander[SendEmailMessage]        = (*SendEmailCommand)(nil)
	_ gocmd.Commander[UpsertPreferenceMessage] = (*UpsertPreferenceCommand)(nil)
)
