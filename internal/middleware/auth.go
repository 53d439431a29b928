package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/fekuna/omnipos-pricing-service/internal/auth"
	"github.com/fekuna/omnipos-pricing-service/internal/logger"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Claims is the access token issued by the auth service.
type Claims struct {
	MerchantID string `json:"merchant_id"`
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	SecretKey string
	// Required rejects calls without a bearer token. When false such calls
	// fall through to the x-merchant-id header.
	Required bool
}

var errMissingToken = errors.New("missing bearer token")

// AuthInterceptor verifies the HS256 bearer token in the authorization
// metadata and stores its claims in the context.
func AuthInterceptor(cfg AuthConfig, log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.reflection.") {
			return handler(ctx, req)
		}

		token, err := bearerToken(ctx)
		if err != nil {
			if errors.Is(err, errMissingToken) && !cfg.Required {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		claims, err := ParseToken(token, cfg.SecretKey)
		if err != nil {
			log.Debug("rejected token", zap.String("method", info.FullMethod), zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		ctx = auth.WithUser(ctx, auth.UserContext{
			MerchantID: claims.MerchantID,
			UserID:     claims.UserID,
			Role:       claims.Role,
		})
		return handler(ctx, req)
	}
}

func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errMissingToken
	}
	values := md.Get("authorization")
	if len(values) == 0 || values[0] == "" {
		return "", errMissingToken
	}
	token, found := strings.CutPrefix(values[0], "Bearer ")
	if !found || token == "" {
		return "", errors.New("authorization must be a bearer token")
	}
	return token, nil
}

// ParseToken validates signature, algorithm and expiry.
func ParseToken(token, secret string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.MerchantID == "" {
		return nil, errors.New("token has no merchant_id")
	}
	return claims, nil
}
