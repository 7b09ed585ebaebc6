package notify

import (
	"context"
	"fmt"

	"bloodlink-backend/internal/apperror"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// SESService is the subset of the SES client used here, for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailNotifier renders templates and sends them through SES.
type EmailNotifier struct {
	client SESService
	from   string
	log    *zap.Logger
}

func NewEmailNotifier(client SESService, from string, log *zap.Logger) *EmailNotifier {
	return &EmailNotifier{client: client, from: from, log: log.Named("notify")}
}

// NewSESClient builds an SES client from the default AWS credential chain.
func NewSESClient(ctx context.Context, region string) (*ses.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return ses.NewFromConfig(cfg), nil
}

var _ Notifier = (*EmailNotifier)(nil)

func (n *EmailNotifier) Notify(ctx context.Context, to string, tmpl Template, data map[string]string) error {
	if to == "" {
		return apperror.MissingField("to")
	}
	subject, body, err := Render(tmpl, data)
	if err != nil {
		return err
	}

	out, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.from),
	})
	if err != nil {
		return apperror.Upstream("ses", err)
	}

	n.log.Debug("email sent",
		zap.String("template", string(tmpl)),
		zap.String("messageId", aws.ToString(out.MessageId)))
	return nil
}

// LogNotifier only logs; used when outbound notifications are disabled.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("notify")}
}

func (n *LogNotifier) Notify(_ context.Context, to string, tmpl Template, data map[string]string) error {
	subject, _, err := Render(tmpl, data)
	if err != nil {
		return err
	}
	n.log.Info("notification suppressed", zap.String("to", to), zap.String("subject", subject))
	return nil
}
