package pgstore

import (
	"github.com/dmitrymomot/authkit/pkg/auth"
	"github.com/dmitrymomot/authkit/pkg/nonce"
)

var (
	_ auth.UserStorage  = (*Store)(nil)
	_ auth.TokenStorage = (*Store)(nil)
	_ nonce.Storage     = (*Store)(nil)
)
