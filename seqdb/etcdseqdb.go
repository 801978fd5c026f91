package seqdb

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	retry "github.com/sethvargo/go-retry"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/clientv3util"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pg-sharding/tradeseq/pkg/models/seqerror"
	"github.com/pg-sharding/tradeseq/pkg/models/sequences"
	"github.com/pg-sharding/tradeseq/pkg/seqlog"
)

const (
	sequenceNamespace = "/sequences/"

	casMaxRetries = 16
)

func sequenceNodePath(key string) string {
	return path.Join(sequenceNamespace, key)
}

// EtcdSeqDB stores each sequence as a decimal value under /sequences/<name>.
type EtcdSeqDB struct {
	cli *clientv3.Client
}

var _ SeqDB = &EtcdSeqDB{}

func NewEtcdSeqDB(addr string) (*EtcdSeqDB, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   []string{addr},
		DialTimeout: 5 * time.Second,
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
	})
	if err != nil {
		return nil, seqerror.DataAccess(err)
	}

	seqlog.Zero.Debug().
		Str("address", addr).
		Msg("etcdseqdb: NewEtcdSeqDB")

	return &EtcdSeqDB{
		cli: cli,
	}, nil
}

func parseValue(seqName string, raw []byte) (int64, error) {
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return -1, seqerror.Newf(seqerror.SEQ_CORRUPTED_DATA, "sequence %q holds %q: %v", seqName, raw, err)
	}
	return v, nil
}

// NextVal reads the value and swaps in value+1 only if the key was not
// modified in between. Lost races are retried.
func (q *EtcdSeqDB) NextVal(ctx context.Context, seqName string) (int64, error) {
	seqlog.Zero.Debug().Str("sequence", seqName).Msg("etcdseqdb: next val")

	id := sequenceNodePath(seqName)
	var observed int64

	backoff := retry.WithMaxRetries(casMaxRetries, retry.NewExponential(5*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := q.cli.Get(ctx, id)
		if err != nil {
			return seqerror.DataAccess(err)
		}
		if resp.Count == 0 {
			return seqerror.NotFound(seqName)
		}
		kv := resp.Kvs[0]
		val, err := parseValue(seqName, kv.Value)
		if err != nil {
			return err
		}

		txn, err := q.cli.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(id), "=", kv.ModRevision)).
			Then(clientv3.OpPut(id, strconv.FormatInt(val+1, 10))).
			Commit()
		if err != nil {
			return seqerror.DataAccess(err)
		}
		if !txn.Succeeded {
			seqlog.Zero.Debug().Str("sequence", seqName).Msg("etcdseqdb: concurrent update, retrying")
			return retry.RetryableError(fmt.Errorf("sequence %q was modified concurrently", seqName))
		}
		observed = val
		return nil
	})
	if err != nil {
		return -1, seqerror.DataAccess(err)
	}
	return observed, nil
}

func (q *EtcdSeqDB) CurrVal(ctx context.Context, seqName string) (int64, error) {
	seqlog.Zero.Debug().Str("sequence", seqName).Msg("etcdseqdb: curr val")

	resp, err := q.cli.Get(ctx, sequenceNodePath(seqName))
	if err != nil {
		return -1, seqerror.DataAccess(err)
	}
	if resp.Count == 0 {
		return -1, seqerror.NotFound(seqName)
	}
	return parseValue(seqName, resp.Kvs[0].Value)
}

func (q *EtcdSeqDB) ListSequences(ctx context.Context) ([]*sequences.Sequence, error) {
	seqlog.Zero.Debug().Msg("etcdseqdb: list all sequences")

	resp, err := q.cli.Get(ctx, sequenceNamespace, clientv3.WithPrefix())
	if err != nil {
		return nil, seqerror.DataAccess(err)
	}

	ret := make([]*sequences.Sequence, 0, len(resp.Kvs))
	for _, e := range resp.Kvs {
		name := strings.TrimPrefix(string(e.Key), sequenceNamespace)
		val, err := parseValue(name, e.Value)
		if err != nil {
			return nil, err
		}
		ret = append(ret, sequences.NewSequence(name, val))
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Name < ret[j].Name
	})
	return ret, nil
}

func (q *EtcdSeqDB) CreateSequence(ctx context.Context, seqName string, initialValue int64) error {
	seqlog.Zero.Debug().
		Str("sequence", seqName).
		Int64("initial", initialValue).
		Msg("etcdseqdb: add sequence")

	key := sequenceNodePath(seqName)
	resp, err := q.cli.Txn(ctx).
		If(clientv3util.KeyMissing(key)).
		Then(clientv3.OpPut(key, strconv.FormatInt(initialValue, 10))).
		Commit()
	if err != nil {
		return seqerror.DataAccess(err)
	}
	if !resp.Succeeded {
		return seqerror.Newf(seqerror.SEQ_DUPLICATE, "sequence %q already exists", seqName)
	}
	return nil
}

func (q *EtcdSeqDB) DropSequence(ctx context.Context, seqName string) error {
	seqlog.Zero.Debug().Str("sequence", seqName).Msg("etcdseqdb: drop sequence")

	resp, err := q.cli.Delete(ctx, sequenceNodePath(seqName))
	if err != nil {
		return seqerror.DataAccess(err)
	}
	if resp.Deleted == 0 {
		return seqerror.NotFound(seqName)
	}
	return nil
}

func (q *EtcdSeqDB) Close() error {
	return q.cli.Close()
}
