package onestore

// PutPrivate writes data under key in the private space, unconditionally.
// For a store opened with Open and a configured secret, the private space
// is always encrypted, regardless of Config.EncryptStorage, since it holds
// host-managed settings/keychain material rather than content-addressed
// objects. A backend passed to OpenWithBackend receives the bytes as given.
func (s *Store) PutPrivate(key string, data []byte) error {
	return s.blobs.Put(SpacePrivate, key, data)
}

// GetPrivate returns the bytes stored under key in the private space, or
// ErrFileNotFound.
func (s *Store) GetPrivate(key string) ([]byte, error) {
	return s.blobs.Get(SpacePrivate, key)
}

// HasPrivate reports whether key exists in the private space.
func (s *Store) HasPrivate(key string) (bool, error) {
	return s.blobs.Has(SpacePrivate, key)
}

// DeletePrivate removes key from the private space.
func (s *Store) DeletePrivate(key string) error {
	return s.blobs.Delete(SpacePrivate, key)
}
