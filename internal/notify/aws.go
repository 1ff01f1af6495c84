package notify

import (
	"context"
	"fmt"

	"leaseflow/internal/config"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// AWSChannels builds the email and SMS channels enabled in cfg. It returns no
// channels, and loads no AWS configuration, when both are disabled.
func AWSChannels(ctx context.Context, cfg config.NotificationConfig) ([]Channel, error) {
	if !cfg.EmailEnabled && !cfg.SMSEnabled {
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var channels []Channel
	if cfg.EmailEnabled {
		channels = append(channels, NewEmailChannel(ses.NewFromConfig(awsCfg), cfg.FromEmail, cfg.BaseURL))
	}
	if cfg.SMSEnabled {
		channels = append(channels, NewSMSChannel(sns.NewFromConfig(awsCfg)))
	}
	return channels, nil
}
