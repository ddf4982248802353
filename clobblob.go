package onestore

// StoreClob persists UTF-8 text under the SHA-256 of its bytes, in the
// same content-addressed objects space as recipe-typed objects.
func (s *Store) StoreClob(text string) (hash string, status Status, err error) {
	data := []byte(text)
	hash = Hash(data)
	existed, err := s.blobs.WriteOnce(SpaceObjects, hash, data)
	if err != nil {
		return "", "", err
	}
	status = StatusNew
	if existed {
		status = StatusExists
	}
	return hash, status, nil
}

// LoadClob returns the UTF-8 text stored at hash.
func (s *Store) LoadClob(hash string) (string, error) {
	data, err := s.blobs.Get(SpaceObjects, hash)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// StoreBlob persists opaque bytes under the SHA-256 of their content.
func (s *Store) StoreBlob(data []byte) (hash string, status Status, err error) {
	hash = Hash(data)
	existed, err := s.blobs.WriteOnce(SpaceObjects, hash, data)
	if err != nil {
		return "", "", err
	}
	status = StatusNew
	if existed {
		status = StatusExists
	}
	return hash, status, nil
}

// LoadBlob returns the raw bytes stored at hash.
func (s *Store) LoadBlob(hash string) ([]byte, error) {
	return s.blobs.Get(SpaceObjects, hash)
}
