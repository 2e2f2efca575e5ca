package auth

import (
	"context"

	"github.com/vivaldi20/member-directory/internal/utils"
)

type TokenInfo struct {
	Store Store
}

func (ti TokenInfo) FindTokenByKey(ctx context.Context, key string) (utils.TokenData, error) {
	token, err := ti.Store.TokenByKey(ctx, key)
	if err != nil {
		return utils.TokenData{}, err
	}

	return utils.TokenData{
		Key:    token.Key,
		UserID: token.UserID,
	}, nil
}
