package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

func (s Service) Peers(ctx context.Context, req PeersRequest) (PeersResult, error) {
	name := strings.TrimSpace(req.PackageName)
	if name == "" {
		return PeersResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name is required")
	}
	peers, err := s.Registry.ListPeers(ctx, name)
	if err != nil {
		return PeersResult{}, err
	}
	used, err := s.Registry.IsUsedByOtherUnits(ctx, s.Settings.PeerID, name)
	if err != nil {
		return PeersResult{}, err
	}
	return PeersResult{PackageName: name, Peers: peers, UsedByOthers: used}, nil
}
