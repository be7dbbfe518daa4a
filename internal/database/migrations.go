package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.AuditLog{},
		&models.SystemSetting{},
		&models.CacheEntry{},
		&models.Tool{},
		&models.MenuItem{},
		&models.AiProvider{},
		&models.ImageHostAccount{},
		&models.GitHubTarget{},
		&models.Note{},
		&models.SystemConfig{},
	)
}

// SeedData populates the tool catalog and the default system configuration.
func SeedData(db *gorm.DB) error {
	if err := seedTools(db, DefaultTools()); err != nil {
		return err
	}
	return ensureSystemConfig(db)
}

// DefaultTools returns the built-in utility catalog.
func DefaultTools() []models.Tool {
	return []models.Tool{
		catalogTool("json-formatter", "JSON 格式化", "JSON Formatter", "格式化、压缩与校验 JSON", "Format, minify and validate JSON", "braces", models.ToolCategoryFormat, 0),
		catalogTool("yaml-converter", "YAML 转换", "YAML Converter", "YAML 与 JSON 互转", "Convert between YAML and JSON", "file-code", models.ToolCategoryFormat, 1),
		catalogTool("sql-formatter", "SQL 格式化", "SQL Formatter", "美化 SQL 语句", "Pretty-print SQL statements", "database", models.ToolCategoryFormat, 2),
		catalogTool("base64", "Base64 编解码", "Base64 Codec", "Base64 编码与解码", "Encode and decode Base64", "binary", models.ToolCategoryEncode, 0),
		catalogTool("url-codec", "URL 编解码", "URL Codec", "URL 编码与解码", "Encode and decode URL components", "link", models.ToolCategoryEncode, 1),
		catalogTool("jwt-decoder", "JWT 解析", "JWT Decoder", "查看 JWT 的头部与载荷", "Inspect JWT header and claims", "key-round", models.ToolCategoryEncode, 2),
		catalogTool("hash", "哈希计算", "Hash Calculator", "MD5、SHA 系列哈希", "MD5 and SHA family digests", "hash", models.ToolCategoryCrypto, 0),
		catalogTool("password-generator", "密码生成", "Password Generator", "生成高强度随机密码", "Generate strong random passwords", "lock", models.ToolCategoryCrypto, 1),
		catalogTool("uuid-generator", "UUID 生成", "UUID Generator", "批量生成 UUID", "Generate UUIDs in bulk", "fingerprint", models.ToolCategoryGenerate, 0),
		catalogTool("qrcode", "二维码", "QR Code", "生成与识别二维码", "Generate and scan QR codes", "qr-code", models.ToolCategoryGenerate, 1),
		catalogTool("timestamp", "时间戳转换", "Timestamp Converter", "Unix 时间戳与日期互转", "Convert Unix timestamps and dates", "clock", models.ToolCategoryGenerate, 2),
		catalogTool("color-picker", "颜色工具", "Color Tools", "颜色选择与格式转换", "Pick colors and convert formats", "palette", models.ToolCategoryImage, 0),
		catalogTool("image-compressor", "图片压缩", "Image Compressor", "通过 TinyPNG 压缩图片", "Compress images through TinyPNG", "image-down", models.ToolCategoryImage, 1),
		catalogTool("image-host", "图床上传", "Image Hosting", "上传图片到 Cloudinary", "Upload images to Cloudinary", "cloud-upload", models.ToolCategoryImage, 2),
		catalogTool("github-upload", "GitHub 上传", "GitHub Upload", "上传文件到 GitHub 仓库", "Upload files to a GitHub repository", "github", models.ToolCategoryImage, 3),
		catalogTool("text-diff", "文本对比", "Text Diff", "比较两段文本的差异", "Compare two texts", "diff", models.ToolCategoryText, 0),
		catalogTool("regex-tester", "正则测试", "Regex Tester", "测试正则表达式", "Test regular expressions", "regex", models.ToolCategoryText, 1),
		catalogTool("markdown-preview", "Markdown 预览", "Markdown Preview", "实时预览 Markdown", "Live Markdown preview", "file-text", models.ToolCategoryText, 2),
		catalogTool("translator", "翻译", "Translator", "基于 AI 的多语言翻译", "AI powered translation", "languages", models.ToolCategoryAI, 0),
		catalogTool("ai-chat", "AI 对话", "AI Chat", "与配置的模型对话", "Chat with a configured model", "bot", models.ToolCategoryAI, 1),
		catalogTool("notes", "笔记", "Notes", "简单的个人笔记本", "A small personal notebook", "notebook-pen", models.ToolCategoryWorkspace, 0),
	}
}

func catalogTool(component, name, nameEn, description, descriptionEn, icon, category string, order int) models.Tool {
	return models.Tool{
		BaseModel:     models.BaseModel{ID: models.ToolID(component)},
		Name:          name,
		NameEn:        nameEn,
		Description:   description,
		DescriptionEn: descriptionEn,
		Icon:          icon,
		Category:      category,
		Component:     component,
		IsActive:      true,
		Order:         order,
	}
}
