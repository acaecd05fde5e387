package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	entryKeyPrefix = "entry:"
	seqKey         = "meta:seq"
)

// FileLedger stores the chain in a LevelDB directory so audit entries,
// including flag events, survive restarts.
//
// Keys: "entry:<seq>" → JSON Entry, zero-padded so iteration order is
// append order; "meta:seq" → latest sequence number.
type FileLedger struct {
	latency time.Duration

	mu  sync.Mutex
	db  *leveldb.DB
	seq uint64
}

// OpenFileLedger opens (or creates) the ledger at path.
func OpenFileLedger(path string, latency time.Duration) (*FileLedger, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}

	l := &FileLedger{latency: latency, db: db}
	if raw, err := db.Get([]byte(seqKey), nil); err == nil {
		if n, err := strconv.ParseUint(string(raw), 10, 64); err == nil {
			l.seq = n
		}
	}
	return l, nil
}

// Close releases the underlying LevelDB handle.
func (l *FileLedger) Close() error {
	return l.db.Close()
}

func entryKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", entryKeyPrefix, seq))
}

func (l *FileLedger) Append(ctx context.Context, ev Event) (Receipt, error) {
	if err := wait(ctx, l.latency); err != nil {
		return Receipt{}, err
	}

	rc := Receipt{
		TxHash:    newTxHash(),
		Timestamp: time.Now().UnixMilli(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.seq + 1
	raw, err := json.Marshal(Entry{Seq: seq, Event: ev, Receipt: rc})
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	batch := new(leveldb.Batch)
	batch.Put(entryKey(seq), raw)
	batch.Put([]byte(seqKey), []byte(strconv.FormatUint(seq, 10)))
	if err := l.db.Write(batch, nil); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	l.seq = seq

	log.WithFields(log.Fields{
		"type":    ev.Type,
		"patient": ev.PatientID,
		"seq":     seq,
		"tx":      rc.TxHash,
	}).Info("block appended")

	return rc, nil
}

func (l *FileLedger) History(ctx context.Context) ([]Entry, error) {
	iter := l.db.NewIterator(util.BytesPrefix([]byte(entryKeyPrefix)), nil)
	defer iter.Release()

	var out []Entry
	for iter.Next() {
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("corrupt ledger entry %s: %w", iter.Key(), err)
		}
		out = append(out, e)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}
