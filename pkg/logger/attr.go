package logger

import "log/slog"

// Error wraps an error into a consistent slog attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Component tags a log record with the emitting component name.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// UserID tags a log record with the acting user id.
func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}

// WalletAddress tags a log record with a wallet address.
func WalletAddress(addr string) slog.Attr {
	return slog.String("wallet_address", addr)
}
