package settings

import (
	"context"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/aitypeset/typeset-go/pkg/errors"
	"go.uber.org/zap"
)

// Resolver 从存储解析出完整设置
type Resolver struct {
	store  Store
	logger *zap.Logger
}

// NewResolver 创建设置解析器
func NewResolver(store Store, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve 读取设置，空值和缺失值使用默认值。
// 存储不可用时返回 SettingsUnavailable。
func (r *Resolver) Resolve(ctx context.Context) (Config, error) {
	items, err := r.store.Load(ctx, Keys)
	if err != nil {
		r.logger.Error("读取设置失败", zap.Error(err))
		return Config{}, apperrors.Wrap(apperrors.KindSettingsUnavailable, "settings unavailable", err)
	}
	return Merge(items), nil
}

// Merge 将存储值合并到默认值上，忽略未识别的键
func Merge(items map[string]string) Config {
	cfg := Defaults()
	for k, v := range items {
		if v == "" {
			continue
		}
		cfg.set(k, v)
	}
	return cfg
}

// Update 校验并保存设置，未识别的键返回错误。
// 与当前打码结果相同的密钥值视为未修改，不写入。
func (r *Resolver) Update(ctx context.Context, values map[string]string) error {
	var unknown []string
	for k := range values {
		if !IsKnownKey(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return apperrors.New(apperrors.KindInvalidInput, fmt.Sprintf("unknown settings keys: %v", unknown))
	}

	values, err := r.dropMaskedSecrets(ctx, values)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	if err := r.store.Save(ctx, values); err != nil {
		return apperrors.Wrap(apperrors.KindSettingsUnavailable, "save settings failed", err)
	}
	r.logger.Info("设置已保存", zap.Int("keys", len(values)))
	return nil
}

// dropMaskedSecrets 去掉与当前密钥打码结果相同的值，避免把读取到的打码值写回覆盖真实密钥
func (r *Resolver) dropMaskedSecrets(ctx context.Context, values map[string]string) (map[string]string, error) {
	var masked []string
	for _, k := range secretKeys {
		if v, ok := values[k]; ok && strings.Contains(v, "*") {
			masked = append(masked, k)
		}
	}
	if len(masked) == 0 {
		return values, nil
	}

	current, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	for _, k := range masked {
		if secret, _ := current.Get(k); secret != "" && values[k] == mask(secret) {
			delete(out, k)
		}
	}
	return out, nil
}

// Reset 清除已保存的设置，之后解析结果为默认值
func (r *Resolver) Reset(ctx context.Context) error {
	if err := r.store.Clear(ctx); err != nil {
		return apperrors.Wrap(apperrors.KindSettingsUnavailable, "reset settings failed", err)
	}
	r.logger.Info("设置已重置为默认值")
	return nil
}

// Seed 仅在存储中没有任何已识别键时写入初始设置
func (r *Resolver) Seed(ctx context.Context, values map[string]string) (bool, error) {
	if len(values) == 0 {
		return false, nil
	}
	existing, err := r.store.Load(ctx, Keys)
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindSettingsUnavailable, "settings unavailable", err)
	}
	if len(existing) > 0 {
		return false, nil
	}
	if err := r.Update(ctx, values); err != nil {
		return false, err
	}
	return true, nil
}
