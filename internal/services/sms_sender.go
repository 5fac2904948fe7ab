package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/roamly/roamly/pkg/logger"
)

// SendResult carries the provider's message id for audit logging
type SendResult struct {
	MessageID string
}

// SMSSender defines the interface for delivering verification codes
type SMSSender interface {
	Send(ctx context.Context, phone, code string) (*SendResult, error)
}

// AWSSNSSender delivers verification codes using AWS SNS
type AWSSNSSender struct {
	snsClient *sns.Client
	senderID  string
	logger    *slog.Logger
}

// NewAWSSNSSender creates a new AWS SNS sender
func NewAWSSNSSender(region, senderID string, log *slog.Logger) (*AWSSNSSender, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSNSSender{
		snsClient: sns.NewFromConfig(cfg),
		senderID:  senderID,
		logger:    log,
	}, nil
}

// Send publishes the verification message directly to the phone number.
// Transactional message type so carriers prioritize delivery.
func (s *AWSSNSSender) Send(ctx context.Context, phone, code string) (*SendResult, error) {
	message := fmt.Sprintf("Your verification code is %s. It expires in 5 minutes.", code)

	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			},
		},
	}

	out, err := s.snsClient.Publish(ctx, input)
	if err != nil {
		s.logger.Error("failed to publish sms",
			slog.String("phone", logger.SanitizedPhone(phone)),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to publish sms: %w", err)
	}

	messageID := aws.ToString(out.MessageId)
	s.logger.Info("sms published",
		slog.String("phone", logger.SanitizedPhone(phone)),
		slog.String("message_id", messageID))

	return &SendResult{MessageID: messageID}, nil
}
