package store

import (
	"context"

	"helpconnect/internal/dynamo"
	"helpconnect/internal/utils"
	"helpconnect/pkg/types"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

type SettingRepository struct {
	db    dynamo.API
	table string
}

func NewSettingRepository(db dynamo.API, table string) *SettingRepository {
	return &SettingRepository{db: db, table: table}
}

// Setting returns the user's notification preferences. A missing record
// means notifications are on.
func (r *SettingRepository) Setting(ctx context.Context, userID string) (*types.NotificationSetting, error) {
	item, err := r.db.Get(ctx, r.table, dynamo.Item{"user_id": dynamo.S(userID)})
	if err != nil {
		return nil, &types.StorageError{Op: "get notification setting", Err: err}
	}

	if item == nil {
		return &types.NotificationSetting{UserID: userID, NotifyEnabled: true}, nil
	}

	var setting types.NotificationSetting
	if err := attributevalue.UnmarshalMap(item, &setting); err != nil {
		return nil, &types.StorageError{Op: "decode notification setting", Err: err}
	}

	return &setting, nil
}

func (r *SettingRepository) PutSetting(ctx context.Context, setting *types.NotificationSetting) error {
	setting.UpdatedAt = utils.NowISO()

	item, err := attributevalue.MarshalMap(setting)
	if err != nil {
		return &types.StorageError{Op: "encode notification setting", Err: err}
	}

	if err := r.db.Put(ctx, r.table, item); err != nil {
		return &types.StorageError{Op: "save notification setting", Err: err}
	}

	return nil
}
