package blackjack

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrHandNotFound   = errors.New("hand not found")
	ErrRoomFull       = errors.New("room is full")
	ErrSeatTaken      = errors.New("seat already taken")
)

// ValidationError 输入不合法, 状态未被触碰。
type ValidationError string

func (e ValidationError) Error() string { return "validation: " + string(e) }

func ErrValidation(msg string) error { return ValidationError(msg) }

// AuthorizationError 权限不足: 非当前行动玩家或非房主调用房主操作。
type AuthorizationError string

func (e AuthorizationError) Error() string { return "authorization: " + string(e) }

func ErrAuthorization(msg string) error { return AuthorizationError(msg) }

// StateError 当前阶段不允许该操作。
type StateError string

func (e StateError) Error() string { return "invalid state: " + string(e) }

func ErrState(msg string) error { return StateError(msg) }

// ResourceError 资源不足 (筹码不够加倍/分牌等)。
type ResourceError string

func (e ResourceError) Error() string { return "resource: " + string(e) }

func ErrResource(msg string) error { return ResourceError(msg) }
