package notify

import (
	"context"
	"fmt"

	"go-gin-event-registration/config"
	"go-gin-event-registration/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// Message 一封已經組好的信
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// sesAPI 只取用到的 SES 方法
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// NewMailer provider 為 "ses" 時使用 AWS SES，其餘一律使用 noop
func NewMailer(cfg config.MailConfig) (Mailer, error) {
	log := logger.WithComponent("mailer")

	switch cfg.Provider {
	case "ses":
		if cfg.FromAddress == "" {
			return nil, fmt.Errorf("mail from address is required for ses")
		}
		awsCfg := aws.Config{
			Region: cfg.AWSRegion,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(
					cfg.AWSAccessKeyID,
					cfg.AWSSecretAccessKey,
					"",
				),
			),
		}
		return newSESMailer(ses.NewFromConfig(awsCfg), cfg.FromAddress, cfg.FromName), nil
	case "noop", "":
		return NewNoopMailer(), nil
	default:
		log.Warn("unknown mail provider, using noop", zap.String("provider", cfg.Provider))
		return NewNoopMailer(), nil
	}
}

type SESMailer struct {
	client sesAPI
	source string
	log    *zap.Logger
}

func newSESMailer(client sesAPI, fromAddress, fromName string) *SESMailer {
	source := fromAddress
	if fromName != "" {
		source = fmt.Sprintf("%s <%s>", fromName, fromAddress)
	}
	return &SESMailer{
		client: client,
		source: source,
		log:    logger.WithComponent("mailer"),
	}
}

func (s *SESMailer) Send(ctx context.Context, msg Message) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.source),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: utf8Content(msg.Subject),
			Body:    &types.Body{},
		},
	}
	if msg.HTML != "" {
		input.Message.Body.Html = utf8Content(msg.HTML)
	}
	if msg.Text != "" {
		input.Message.Body.Text = utf8Content(msg.Text)
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}
	s.log.Info("email sent via SES",
		zap.String("to", msg.To),
		zap.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

func utf8Content(data string) *types.Content {
	return &types.Content{
		Data:    aws.String(data),
		Charset: aws.String("UTF-8"),
	}
}

type NoopMailer struct {
	log *zap.Logger
}

func NewNoopMailer() *NoopMailer {
	return &NoopMailer{log: logger.WithComponent("mailer")}
}

func (n *NoopMailer) Send(ctx context.Context, msg Message) error {
	n.log.Info("email would be sent (noop)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
