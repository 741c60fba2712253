// api/util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
)

type NotificationService struct {
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

func (n *NotificationService) NotifyPolicyChange(ctx context.Context, changeType string, policy model.Policy) error {
	switch changeType {
	case "created":
		logger.Info("NOTIFICATION: New policy created",
			zap.String("policyID", policy.ID),
			zap.String("policyName", policy.Name),
			zap.String("organizationID", policy.OrganizationID))
	case "updated":
		logger.Info("NOTIFICATION: Policy updated",
			zap.String("policyID", policy.ID),
			zap.String("policyName", policy.Name))
	case "deactivated":
		logger.Info("NOTIFICATION: Policy deactivated",
			zap.String("policyID", policy.ID))
	case "deleted":
		logger.Info("NOTIFICATION: Policy deleted",
			zap.String("policyID", policy.ID))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}

	return nil
}

// NotifyGrantChange reports a change to who holds a policy: a direct grant, a
// group policy edit or a role assignment.
func (n *NotificationService) NotifyGrantChange(ctx context.Context, grantKind, subjectID, organizationID string) error {
	logger.Info("NOTIFICATION: Grant changed",
		zap.String("grantKind", grantKind),
		zap.String("subjectID", subjectID),
		zap.String("organizationID", organizationID))
	return nil
}
