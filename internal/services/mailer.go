package services

import (
	"fmt"
	"log"
	"strconv"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendFeedbackNotification(email, title, creatorName string) error
}

type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
}

func NewSMTPMailer(host, port, username, password string) *SMTPMailer {
	return &SMTPMailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
	}
}

func (m *SMTPMailer) SendFeedbackNotification(email, title, creatorName string) error {
	port, err := strconv.Atoi(m.Port)
	if err != nil {
		port = 587
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.Username)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "New feedback: "+title)
	msg.SetBody("text/plain", fmt.Sprintf("%s submitted a new feedback item: %s", creatorName, title))

	dialer := gomail.NewDialer(m.Host, port, m.Username, m.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		log.Printf("send feedback notification email: %v", err)
		return err
	}
	return nil
}
