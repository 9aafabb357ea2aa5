// 包 version：构建信息，由 -ldflags "-X vote-map/internal/version.Commit=<sha>" 注入
package version

var Commit = "dev"
