// Package notification delivers "a friend shared a song" emails outside the
// request that triggered them.
package notification

import (
	"context"
	"errors"
	"strings"
)

// TypeSongShared is the asynq task type for a song notification.
const TypeSongShared = "notification:song"

const defaultSubject = "This is a cool song"

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrStopped   = errors.New("notification dispatcher stopped")
)

// Job is everything a worker needs to send one email. It carries no database
// ids so it can be processed by a different process.
type Job struct {
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name,omitempty"`
	Subject        string `json:"subject"`
	SongTitle      string `json:"song_title"`
	Artist         string `json:"artist"`
	Album          string `json:"album,omitempty"`
	Sender         string `json:"sender"`
	SharedBy       string `json:"shared_by,omitempty"`
}

// NewSongJob builds the job for sharing one song, with the configured prefix
// in front of the fixed subject line.
func NewSongJob(subjectPrefix, sender, recipientEmail, recipientName, title, artist, album string) Job {
	subject := defaultSubject
	if p := strings.TrimSpace(subjectPrefix); p != "" {
		subject = p + " " + subject
	}
	return Job{
		RecipientEmail: recipientEmail,
		RecipientName:  recipientName,
		Subject:        subject,
		SongTitle:      title,
		Artist:         artist,
		Album:          album,
		Sender:         sender,
	}
}

// Dispatcher accepts a job and returns before it is delivered.
type Dispatcher interface {
	Submit(ctx context.Context, job Job) error
}

// Sender performs the actual delivery.
type Sender interface {
	Send(ctx context.Context, job Job) error
}
