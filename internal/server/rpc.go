package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"guandan-scorekeeper/internal/apperr"
	"guandan-scorekeeper/internal/normalize"
	"guandan-scorekeeper/internal/service"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	GameServiceName   = "scorekeeper.v1.GameService"
	GetGameProcedure  = "/" + GameServiceName + "/GetGame"
	SaveGameProcedure = "/" + GameServiceName + "/SaveGame"
)

// GameRPC exposes the game service over connect. Requests and responses are
// google.protobuf.Struct values:
//
//	GetGame  {id}         -> {id, state, outcome}
//	SaveGame {id?, state} -> {id, state, outcome}
type GameRPC struct {
	svc    *service.GameService
	logger zerolog.Logger
}

func NewGameRPC(svc *service.GameService, logger zerolog.Logger) *GameRPC {
	return &GameRPC{svc: svc, logger: logger}
}

func (s *GameRPC) Handler() (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(GetGameProcedure, connect.NewUnaryHandler(GetGameProcedure, s.GetGame))
	mux.Handle(SaveGameProcedure, connect.NewUnaryHandler(SaveGameProcedure, s.SaveGame))
	return "/" + GameServiceName + "/", mux
}

func (s *GameRPC) GetGame(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	id := normalize.String(req.Msg.AsMap()["id"])

	res, err := s.svc.Get(ctx, id)
	if err != nil {
		return nil, s.connectError(err)
	}
	return s.toResponse(res)
}

func (s *GameRPC) SaveGame(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	body := req.Msg.AsMap()
	id := normalize.String(body["id"])

	res, err := s.svc.Save(ctx, id, body)
	if err != nil {
		return nil, s.connectError(err)
	}
	return s.toResponse(res)
}

func (s *GameRPC) toResponse(res *service.Result) (*connect.Response[structpb.Struct], error) {
	raw, err := json.Marshal(res.State)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to encode state: %w", err))
	}
	var st map[string]any
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to decode state: %w", err))
	}

	msg, err := structpb.NewStruct(map[string]any{
		"id":      res.ID,
		"outcome": res.Outcome.String(),
		"state":   st,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to build response: %w", err))
	}
	return connect.NewResponse(msg), nil
}

func (s *GameRPC) connectError(err error) *connect.Error {
	appErr := apperr.From(err)

	code := connect.CodeInternal
	switch appErr.Kind {
	case apperr.KindValidation, apperr.KindMalformedInput:
		code = connect.CodeInvalidArgument
	case apperr.KindNotFound:
		code = connect.CodeNotFound
	case apperr.KindMethodNotAllowed:
		code = connect.CodeUnimplemented
	case apperr.KindTooLarge:
		code = connect.CodeResourceExhausted
	default:
		s.logger.Error().Err(err).Str("code", appErr.Code).Msg("rpc failed")
	}

	cerr := connect.NewError(code, fmt.Errorf("%s: %s", appErr.Code, appErr.Message))
	cerr.Meta().Set("X-Error-Code", appErr.Code)
	if detail, derr := structpb.NewStruct(map[string]any{"error": appErr.Code, "message": appErr.Message}); derr == nil {
		if d, derr := connect.NewErrorDetail(detail); derr == nil {
			cerr.AddDetail(d)
		}
	}
	return cerr
}
