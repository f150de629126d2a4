package kvstore

import "log/slog"

// Debug wraps any Store and logs every call at debug level.
type Debug struct {
	store  Store
	logger *slog.Logger
}

var _ Store = (*Debug)(nil)

// NewDebug creates a new debug wrapper around an existing store.
func NewDebug(store Store, logger *slog.Logger) *Debug {
	return &Debug{
		store:  store,
		logger: logger.With("component", "kvstore"),
	}
}

func (d *Debug) GetInt(key string) (int, bool, error) {
	v, ok, err := d.store.GetInt(key)
	d.logger.Debug("GetInt", "key", key, "value", v, "found", ok, "error", err)
	return v, ok, err
}

func (d *Debug) SetInt(key string, value int) error {
	err := d.store.SetInt(key, value)
	d.logger.Debug("SetInt", "key", key, "value", value, "error", err)
	return err
}

func (d *Debug) GetString(key string) (string, bool, error) {
	v, ok, err := d.store.GetString(key)
	d.logger.Debug("GetString", "key", key, "size", len(v), "found", ok, "error", err)
	return v, ok, err
}

func (d *Debug) SetString(key string, value string) error {
	err := d.store.SetString(key, value)
	d.logger.Debug("SetString", "key", key, "size", len(value), "error", err)
	return err
}

func (d *Debug) Delete(key string) error {
	err := d.store.Delete(key)
	d.logger.Debug("Delete", "key", key, "error", err)
	return err
}

func (d *Debug) Flush() error {
	err := d.store.Flush()
	d.logger.Debug("Flush", "error", err)
	return err
}

func (d *Debug) Close() error {
	err := d.store.Close()
	d.logger.Debug("Close", "error", err)
	return err
}
