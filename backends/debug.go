package backends

import "log/slog"

// Debug wraps any Backend and adds debug logging.
// This allows any backend implementation to have debug logging without
// coupling the debug logic to the backend implementation.
type Debug struct {
	backend Backend
	logger  *slog.Logger
}

var _ Backend = (*Debug)(nil)

// NewDebug creates a new debug wrapper around an existing backend.
func NewDebug(backend Backend, logger *slog.Logger) *Debug {
	return &Debug{
		backend: backend,
		logger:  logger.With("component", "backend"),
	}
}

// Read retrieves a blob with debug logging.
func (d *Debug) Read(path string) ([]byte, error) {
	d.logger.Debug("Read", "path", path)

	data, err := d.backend.Read(path)
	if err != nil {
		d.logger.Debug("Read: ERROR", "path", path, "error", err)
		return data, err
	}

	d.logger.Debug("Read: HIT", "path", path, "size", len(data))
	return data, nil
}

// Write stores a blob with debug logging.
func (d *Debug) Write(path string, data []byte) error {
	d.logger.Debug("Write", "path", path, "size", len(data))

	if err := d.backend.Write(path, data); err != nil {
		d.logger.Debug("Write: ERROR", "path", path, "error", err)
		return err
	}

	d.logger.Debug("Write: stored", "path", path)
	return nil
}

// Delete removes a blob with debug logging.
func (d *Debug) Delete(path string) error {
	d.logger.Debug("Delete", "path", path)

	if err := d.backend.Delete(path); err != nil {
		d.logger.Debug("Delete: ERROR", "path", path, "error", err)
		return err
	}

	d.logger.Debug("Delete: removed", "path", path)
	return nil
}
