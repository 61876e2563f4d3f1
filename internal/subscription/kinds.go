package subscription

import (
	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
)

// Topic names what to subscribe to and how to undo it.
type Topic struct {
	Method            string
	UnsubscribeMethod string
	Params            []any
}

type obj = map[string]any

func options(commitment solrpc.CommitmentType, extra obj) obj {
	o := obj{}
	for k, v := range extra {
		o[k] = v
	}
	if commitment != "" {
		o["commitment"] = commitment
	}
	return o
}

// Account streams lamport and data changes of one account.
func Account(key solana.PublicKey, commitment solrpc.CommitmentType) Topic {
	return Topic{
		Method:            "accountSubscribe",
		UnsubscribeMethod: "accountUnsubscribe",
		Params:            []any{key.String(), options(commitment, obj{"encoding": solana.EncodingBase64})},
	}
}

// Logs streams transaction logs. An empty mention subscribes to all transactions.
func Logs(mention *solana.PublicKey, commitment solrpc.CommitmentType) Topic {
	var filter any = "all"
	if mention != nil {
		filter = obj{"mentions": []string{mention.String()}}
	}
	return Topic{
		Method:            "logsSubscribe",
		UnsubscribeMethod: "logsUnsubscribe",
		Params:            []any{filter, options(commitment, nil)},
	}
}

// Program streams changes to accounts owned by program.
func Program(program solana.PublicKey, commitment solrpc.CommitmentType) Topic {
	return Topic{
		Method:            "programSubscribe",
		UnsubscribeMethod: "programUnsubscribe",
		Params:            []any{program.String(), options(commitment, obj{"encoding": solana.EncodingBase64})},
	}
}

// Signature delivers one notification when the transaction reaches commitment. The
// server drops the subscription after that notification.
func Signature(sig solana.Signature, commitment solrpc.CommitmentType) Topic {
	return Topic{
		Method:            "signatureSubscribe",
		UnsubscribeMethod: "signatureUnsubscribe",
		Params:            []any{sig.String(), options(commitment, nil)},
	}
}

// Slot streams slot progress.
func Slot() Topic {
	return Topic{Method: "slotSubscribe", UnsubscribeMethod: "slotUnsubscribe"}
}

// Root streams new roots.
func Root() Topic {
	return Topic{Method: "rootSubscribe", UnsubscribeMethod: "rootUnsubscribe"}
}
