package api

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log"
	"time"

	"item-catalog-service/internal/catalog"
	"item-catalog-service/internal/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// CatalogServiceName is the fully qualified gRPC service name.
const CatalogServiceName = "catalog.v1.CatalogService"

// CatalogServer is the server API for the catalog gRPC service. Requests and
// responses use the protobuf well-known types, so no generated code is needed.
type CatalogServer interface {
	ListItems(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetItem(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	AddItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchItems(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	FetchImage(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
}

// CatalogServiceDesc describes the catalog service for grpc.Server.
var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListItems", Handler: unaryHandler("ListItems", CatalogServer.ListItems)},
		{MethodName: "GetItem", Handler: unaryHandler("GetItem", CatalogServer.GetItem)},
		{MethodName: "AddItem", Handler: unaryHandler("AddItem", CatalogServer.AddItem)},
		{MethodName: "SearchItems", Handler: unaryHandler("SearchItems", CatalogServer.SearchItems)},
		{MethodName: "FetchImage", Handler: unaryHandler("FetchImage", CatalogServer.FetchImage)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/v1/catalog.proto",
}

// RegisterCatalogServer registers srv on s.
func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

// unaryHandler adapts a CatalogServer method to a grpc method handler,
// decoding the request and running the server's interceptor chain.
func unaryHandler[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](
	method string,
	call func(CatalogServer, context.Context, PReq) (Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + CatalogServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CatalogServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CatalogServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GRPCHandler implements CatalogServer on top of a Catalog.
type GRPCHandler struct {
	catalog Catalog
}

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(c Catalog) *GRPCHandler {
	return &GRPCHandler{catalog: c}
}

var _ CatalogServer = (*GRPCHandler)(nil)

// --- Helper: Error Mapping ---
func mapCatalogErrorToGrpcStatus(err error, op string) error {
	if err == nil {
		return nil
	}

	var fieldErr *catalog.FieldError
	switch {
	case errors.As(err, &fieldErr):
		log.Printf("WARN: %s rejected: %v", op, err)
		return status.Errorf(codes.InvalidArgument, "%s", fieldErr.Error())
	case errors.Is(err, catalog.ErrMalformedInput):
		log.Printf("WARN: %s rejected: %v", op, err)
		return status.Errorf(codes.InvalidArgument, "%v", err)
	case errors.Is(err, catalog.ErrNotFound):
		return status.Errorf(codes.NotFound, "item not found")
	case errors.Is(err, catalog.ErrStorageFault):
		log.Printf("ERROR: %s failed: %v", op, err)
		return status.Errorf(codes.Unavailable, "storage is temporarily unavailable")
	default:
		log.Printf("ERROR: %s failed: %v", op, err)
		return status.Errorf(codes.Internal, "failed to process %s request", op)
	}
}

// --- Catalog gRPC Methods Implementation ---

func (s *GRPCHandler) ListItems(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return nil, mapCatalogErrorToGrpcStatus(err, "ListItems")
	}
	return itemsToStruct(items)
}

func (s *GRPCHandler) GetItem(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	item, err := s.catalog.GetItem(ctx, catalog.GetItemInput{ID: req.GetValue()})
	if err != nil {
		return nil, mapCatalogErrorToGrpcStatus(err, "GetItem")
	}

	resp, err := structpb.NewStruct(map[string]any{
		"name":     item.Name,
		"category": item.Category,
		"image":    item.ImageName,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode item %d", req.GetValue())
	}
	return resp, nil
}

// AddItem expects string fields name and category, and the image bytes as a
// base64 string under image.
func (s *GRPCHandler) AddItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	in := catalog.AddItemInput{
		Name:     fields["name"].GetStringValue(),
		Category: fields["category"].GetStringValue(),
	}
	if raw := fields["image"].GetStringValue(); raw != "" {
		image, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "image must be base64 encoded")
		}
		in.Image = image
	}

	res, err := s.catalog.AddItem(ctx, in)
	if err != nil {
		return nil, mapCatalogErrorToGrpcStatus(err, "AddItem")
	}

	resp, err := structpb.NewStruct(map[string]any{
		"message":    res.Message,
		"id":         res.ID,
		"image_name": res.ImageName,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode added item")
	}
	return resp, nil
}

func (s *GRPCHandler) SearchItems(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	items, err := s.catalog.SearchItems(ctx, catalog.SearchInput{Keyword: req.GetValue()})
	if err != nil {
		return nil, mapCatalogErrorToGrpcStatus(err, "SearchItems")
	}
	return itemsToStruct(items)
}

func (s *GRPCHandler) FetchImage(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	img, err := s.catalog.FetchImage(ctx, catalog.FetchImageInput{Name: req.GetValue()})
	if err != nil {
		return nil, mapCatalogErrorToGrpcStatus(err, "FetchImage")
	}
	defer img.Body.Close()

	data, err := io.ReadAll(img.Body)
	if err != nil {
		log.Printf("ERROR: Failed to read image %s: %v", img.Name, err)
		return nil, status.Errorf(codes.Unavailable, "failed to read image")
	}
	return wrapperspb.Bytes(data), nil
}

// --- Helper Functions for Conversion ---

func itemsToStruct(items []domain.ItemView) (*structpb.Struct, error) {
	list := make([]any, 0, len(items))
	for _, it := range items {
		list = append(list, map[string]any{
			"name":       it.Name,
			"category":   it.Category,
			"image_name": it.ImageName,
		})
	}
	s, err := structpb.NewStruct(map[string]any{"items": list})
	if err != nil {
		log.Printf("ERROR: Failed to encode %d items: %v", len(items), err)
		return nil, status.Errorf(codes.Internal, "failed to encode items")
	}
	return s, nil
}

// UnaryLoggingInterceptor logs each unary call with its outcome code and
// duration.
func UnaryLoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	log.Printf("INFO: gRPC %s code=%s duration=%s", info.FullMethod, status.Code(err), time.Since(start))
	return resp, err
}
