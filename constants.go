package main

const helpMessage = `Go to PTPImg - Upload images and image URLs to ptpimg.me

Local files are uploaded in one request, then image URLs are downloaded and
uploaded in a second one. Hosted URLs are printed in that order, one per line,
and copied to the clipboard.

The API key is read from --api-key, then PTPIMG_API_KEY, then
~/.go-to-ptpimg/config.toml (run "go-to-ptpimg config" to create it).

Examples:
  go-to-ptpimg shot1.png shot2.png
  go-to-ptpimg -b https://example.com/poster.jpg
  go-to-ptpimg -k YOUR_API_KEY --nobell -n img*.png`

const envAPIKey = "PTPIMG_API_KEY"
