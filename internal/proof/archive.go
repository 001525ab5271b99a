package proof

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/schemadrift/schemadrift/internal/errors"
	"github.com/schemadrift/schemadrift/internal/models"
)

var (
	bucketEpochs = []byte("epochs")
	bucketRefs   = []byte("refs")
)

// Archive persists finalized epochs and their backend references in a
// local bbolt database
type Archive struct {
	db *bolt.DB
}

// OpenArchive opens (or creates) the epoch archive at path
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.FileSystemErrorf(err, "failed to create archive directory")
	}

	db, err := bolt.Open(path, 0644, nil)
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "failed to open epoch archive %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEpochs); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketRefs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.FileSystemErrorf(err, "failed to initialize epoch archive")
	}

	return &Archive{db: db}, nil
}

// SaveEpoch stores a finalized epoch keyed by its id
func (a *Archive) SaveEpoch(epoch *models.Epoch) error {
	data, err := json.Marshal(epoch)
	if err != nil {
		return errors.InternalErrorf("failed to marshal epoch %s: %v", epoch.EpochID, err)
	}
	return a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEpochs).Put([]byte(epoch.EpochID), data)
	})
}

// SaveRef stores the backend reference returned for an epoch submission
func (a *Archive) SaveRef(epochID string, ref *models.ProofRef) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return errors.InternalErrorf("failed to marshal ref for %s: %v", epochID, err)
	}
	return a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRefs).Put([]byte(epochID), data)
	})
}

// GetEpoch loads one epoch by id
func (a *Archive) GetEpoch(epochID string) (*models.Epoch, error) {
	var epoch *models.Epoch
	err := a.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketEpochs).Get([]byte(epochID))
		if data == nil {
			return errors.NotFoundErrorf("epoch %s not found in archive", epochID)
		}
		epoch = &models.Epoch{}
		if err := json.Unmarshal(data, epoch); err != nil {
			return errors.CorruptStateError(err, fmt.Sprintf("epoch %s is unreadable", epochID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return epoch, nil
}

// GetRef loads the backend reference recorded for an epoch, or nil
func (a *Archive) GetRef(epochID string) (*models.ProofRef, error) {
	var ref *models.ProofRef
	err := a.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRefs).Get([]byte(epochID))
		if data == nil {
			return nil
		}
		ref = &models.ProofRef{}
		if err := json.Unmarshal(data, ref); err != nil {
			return errors.CorruptStateError(err, fmt.Sprintf("ref for %s is unreadable", epochID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// ListEpochs returns every archived epoch sorted by id
func (a *Archive) ListEpochs() ([]*models.Epoch, error) {
	var epochs []*models.Epoch
	err := a.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEpochs).ForEach(func(k, v []byte) error {
			epoch := &models.Epoch{}
			if err := json.Unmarshal(v, epoch); err != nil {
				return errors.CorruptStateError(err, fmt.Sprintf("epoch %s is unreadable", k))
			}
			epochs = append(epochs, epoch)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i].EpochID < epochs[j].EpochID })
	return epochs, nil
}

// Close closes the underlying database
func (a *Archive) Close() error {
	return a.db.Close()
}
