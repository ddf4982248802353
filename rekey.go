package onestore

import "errors"

// RekeyStorage re-derives the at-rest encryption key from newSecret and
// rewrites every file under objects/, vheads/, rmaps/, and private/: each
// file is read through the adapter (decrypted with the prior key where that
// space is sealed, otherwise read as stored), then re-persisted via the
// adapter's atomic write path. private/ is always re-encrypted with the new
// key; the other three spaces are re-encrypted only when EncryptStorage is
// set, and are otherwise rewritten as plaintext. Changing
// SecretForStorageKey without this operation would leave existing files
// undecryptable under the new key.
func (s *Store) RekeyStorage(newSecret []byte) error {
	a, ok := s.blobs.(*adapter)
	if !ok {
		return errors.New("onestore: RekeyStorage requires the filesystem BlobStore adapter")
	}

	newEnc, err := NewSecretEncryptor(newSecret)
	if err != nil {
		return err
	}

	spaces := []Space{SpaceObjects, SpaceVHeads, SpaceRMaps, SpacePrivate}
	for _, space := range spaces {
		keys, err := a.List(space)
		if err != nil {
			return err
		}
		for _, key := range keys {
			plain, err := a.Get(space, key)
			if err != nil {
				return err
			}
			sealed := plain
			if a.encryptAll || space == SpacePrivate {
				sealed, err = newEnc.Encrypt(plain)
				if err != nil {
					return err
				}
			}
			if err := a.fs.Put(string(space), key, sealed); err != nil {
				return err
			}
		}
	}

	a.enc = newEnc
	s.enc = newEnc
	s.config.SecretForStorageKey = string(newSecret)
	return nil
}
