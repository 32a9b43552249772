// Package p2p shares orders between nodes over libp2p GossipSub, with a
// unicast stream for pulling a peer's book on connect.
package p2p

import (
	"context"
	"errors"
	"fmt"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/smolpuddle/puddle/pkg/metrics"
	"github.com/smolpuddle/puddle/pkg/order"
	"github.com/smolpuddle/puddle/pkg/orderbook"
)

const (
	TopicOrders  = "smolpuddle/orders/1"
	protocolSync = protocol.ID("/smolpuddle/sync/1.0.0")
)

type Libp2pNet struct {
	h       host.Host
	ps      *pubsub.PubSub
	book    *orderbook.Book
	log     *zap.SugaredLogger
	metrics *metrics.Metrics

	topic *pubsub.Topic
	sub   *pubsub.Subscription
	ctx   context.Context
}

type Libp2pConfig struct {
	ListenAddr string
	Bootstrap  []string
	Book       *orderbook.Book
	Logger     *zap.SugaredLogger
	Metrics    *metrics.Metrics
}

// NewLibp2pNet starts a host, joins the order topic, pulls a snapshot from
// every bootstrap peer it reaches and begins relaying orders. It runs until
// ctx is done or Close is called.
func NewLibp2pNet(ctx context.Context, cfg Libp2pConfig) (*Libp2pNet, error) {
	if cfg.Book == nil {
		return nil, errors.New("p2p: book is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(metrics.DefaultConfig())
	}

	var opts []libp2p.Option
	if cfg.ListenAddr != "" {
		maddr, err := ma.NewMultiaddr(cfg.ListenAddr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, libp2p.ListenAddrs(maddr))
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, err
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		return nil, err
	}

	net := &Libp2pNet{
		h: h, ps: ps, book: cfg.Book,
		log: cfg.Logger, metrics: cfg.Metrics,
		ctx: ctx,
	}
	if err := net.joinTopic(); err != nil {
		h.Close()
		return nil, err
	}

	h.SetStreamHandler(protocolSync, net.handleSyncStream)
	cfg.Book.OnOrder(net.onOrder)

	for _, bs := range cfg.Bootstrap {
		info, err := connectMultiaddr(ctx, h, bs)
		if err != nil {
			cfg.Logger.Warnw("bootstrap_connect_failed", "addr", bs, "err", err)
			continue
		}
		if n, err := net.SyncFrom(ctx, info.ID); err != nil {
			cfg.Logger.Warnw("bootstrap_sync_failed", "peer", info.ID.String(), "err", err)
		} else {
			cfg.Logger.Infow("bootstrap_synced", "peer", info.ID.String(), "orders", n)
		}
	}

	go net.handleOrders(ctx)

	cfg.Logger.Infow("libp2p_ready", "peer", h.ID().String(), "listen", cfg.ListenAddr)
	return net, nil
}

func connectMultiaddr(ctx context.Context, h host.Host, addr string) (*peer.AddrInfo, error) {
	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return nil, err
	}
	info, err := peer.AddrInfoFromP2pAddr(m)
	if err != nil {
		return nil, err
	}
	if err := h.Connect(ctx, *info); err != nil {
		return nil, err
	}
	return info, nil
}

func (n *Libp2pNet) joinTopic() error {
	// Malformed payloads are dropped before they are relayed.
	err := n.ps.RegisterTopicValidator(TopicOrders, func(_ context.Context, _ peer.ID, msg *pubsub.Message) bool {
		_, err := order.ValidateShape(msg.Data)
		return err == nil
	})
	if err != nil {
		return err
	}
	if n.topic, err = n.ps.Join(TopicOrders); err != nil {
		return err
	}
	n.sub, err = n.topic.Subscribe()
	return err
}

func (n *Libp2pNet) Host() host.Host { return n.h }

// Addrs returns the host's dialable addresses with the /p2p/ peer suffix.
func (n *Libp2pNet) Addrs() []string {
	suffix, err := ma.NewMultiaddr("/p2p/" + n.h.ID().String())
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(n.h.Addrs()))
	for _, a := range n.h.Addrs() {
		out = append(out, a.Encapsulate(suffix).String())
	}
	return out
}

// TopicPeers returns the peers known to be subscribed to the order topic.
func (n *Libp2pNet) TopicPeers() []peer.ID { return n.topic.ListPeers() }

func (n *Libp2pNet) Close() error {
	n.sub.Cancel()
	return n.h.Close()
}

// Publish gossips an order to the topic.
func (n *Libp2pNet) Publish(ctx context.Context, o order.Order) error {
	data, err := encodeOrder(o)
	if err != nil {
		return err
	}
	if err := n.topic.Publish(ctx, data); err != nil {
		return err
	}
	n.metrics.GossipPublished()
	return nil
}

// onOrder publishes orders admitted locally. Orders that came from gossip
// are already being relayed by the mesh.
func (n *Libp2pNet) onOrder(o order.Order, src orderbook.Source) {
	if src == orderbook.SourceGossip {
		return
	}
	if err := n.Publish(n.ctx, o); err != nil {
		n.log.Warnw("gossip_publish_failed", "hash", o.Hash().Hex(), "err", err)
	}
}

// inbound

func (n *Libp2pNet) handleOrders(ctx context.Context) {
	for {
		msg, err := n.sub.Next(ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == n.h.ID() {
			continue
		}
		n.metrics.GossipReceived()

		o, err := n.book.Submit(msg.Data, orderbook.SourceGossip)
		switch {
		case err == nil:
			n.log.Debugw("gossip_order", "hash", o.Hash().Hex(), "from", msg.ReceivedFrom.String())
		case errors.Is(err, orderbook.ErrDuplicate):
		default:
			n.log.Debugw("gossip_order_rejected", "from", msg.ReceivedFrom.String(), "err", err)
		}
	}
}

// handleSyncStream writes this node's live orders to a peer and closes.
func (n *Libp2pNet) handleSyncStream(s network.Stream) {
	defer s.Close()

	orders, err := n.book.All()
	if err != nil {
		n.log.Warnw("sync_list_failed", "err", err)
		s.Reset()
		return
	}
	data, err := encodeSnapshot(orders)
	if err != nil {
		s.Reset()
		return
	}
	if _, err := s.Write(data); err != nil {
		n.log.Debugw("sync_write_failed", "peer", s.Conn().RemotePeer().String(), "err", err)
	}
}

// SyncFrom pulls a snapshot from p and admits every order in it. It returns
// how many orders were new.
func (n *Libp2pNet) SyncFrom(ctx context.Context, p peer.ID) (int, error) {
	s, err := n.h.NewStream(ctx, p, protocolSync)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	if err := s.CloseWrite(); err != nil {
		return 0, err
	}

	orders, err := readSnapshot(s)
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}
	added := 0
	for _, o := range orders {
		if err := n.book.Add(o, orderbook.SourceGossip); err == nil {
			added++
		}
	}
	return added, nil
}
