package relay

import (
	"bytes"
	"html/template"
)

// The manual test form posts JSON to /wxsend with the token carried in the
// Authorization header. Template escaping keeps the token safe to embed.
var testPageTmpl = template.Must(template.New("testpage").Parse(`<!doctype html>
<html lang="zh-CN">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width,initial-scale=1" />
    <title>WXPush 测试页面</title>
    <style>
      body {
        font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
        display: flex;
        align-items: center;
        justify-content: center;
        min-height: 100vh;
        margin: 0;
        padding: 24px;
        background: linear-gradient(170deg, #f3e8ff 0%, #ffffff 100%);
        color: #1f2937;
        box-sizing: border-box;
      }
      .container {
        background: rgba(255, 255, 255, 0.85);
        border-radius: 24px;
        box-shadow: 0 8px 32px rgba(0, 0, 0, 0.1);
        padding: 40px;
        max-width: 720px;
        width: 100%;
      }
      h1 { margin: 0 0 12px; font-size: 32px; text-align: center; }
      .hint { color: #4b5563; margin: 0 0 24px; text-align: center; }
      label { display: block; margin: 16px 0 8px; font-weight: 700; color: #374151; }
      input[type=text], textarea {
        width: 100%;
        padding: 12px;
        border: 1px solid #d4d4d8;
        border-radius: 12px;
        background: #f4f4f5;
        box-sizing: border-box;
        font-family: inherit;
        font-size: 14px;
      }
      button {
        margin-top: 24px;
        padding: 12px 20px;
        border-radius: 12px;
        border: 0;
        background: #8b5cf6;
        color: #fff;
        cursor: pointer;
        font-weight: 700;
      }
      button#clearBtn { background: #f4f4f5; color: #374151; border: 1px solid #e4e4e7; }
      pre {
        background: #1f2937;
        color: #e5e7eb;
        padding: 16px;
        border-radius: 12px;
        white-space: pre-wrap;
        word-break: break-all;
      }
    </style>
  </head>
  <body>
    <div class="container">
      <h1>WXPush 测试页面</h1>
      <p class="hint">当前 token (来自路径)：<strong>{{.Token}}</strong></p>

      <form id="testForm" method="POST" action="/wxsend">
        <label for="title1">标题 (title1)</label>
        <input id="title1" name="title1" type="text" value="测试标题" />

        <label for="content">内容 (content)</label>
        <textarea id="content" name="content" rows="4">这是测试内容</textarea>

        <label for="userid">用户 ID (userid，可选，多用户用 | 分隔)</label>
        <input id="userid" name="userid" type="text" placeholder="例如: OPENID1|OPENID2" />

        <label for="appid">WX_APPID (可选，留空使用环境变量)</label>
        <input id="appid" name="appid" type="text" />

        <label for="secret">WX_SECRET (可选，留空使用环境变量)</label>
        <input id="secret" name="secret" type="text" />

        <label for="template_id">模板 ID (template_id，可选)</label>
        <input id="template_id" name="template_id" type="text" />

        <label for="base_url">跳转链接 base_url (可选)</label>
        <input id="base_url" name="base_url" type="text" />

        <input type="hidden" name="token" id="hiddenToken" value="{{.Token}}" />

        <div style="display:flex;gap:12px;align-items:center">
          <button id="sendBtn" type="submit">发送测试请求</button>
          <button type="button" id="clearBtn">清空</button>
        </div>
      </form>
      <div id="responseCard" style="display:none; margin-top: 20px;">
        <label for="responseArea">响应</label>
        <pre id="responseArea"></pre>
      </div>
    </div>

    <script>
      const form = document.getElementById('testForm');
      const sendBtn = document.getElementById('sendBtn');
      const clearBtn = document.getElementById('clearBtn');
      const responseArea = document.getElementById('responseArea');
      const responseCard = document.getElementById('responseCard');

      clearBtn.addEventListener('click', () => {
        for (const id of ['title1', 'content', 'userid', 'appid', 'secret', 'template_id', 'base_url']) {
          document.getElementById(id).value = '';
        }
        responseArea.textContent = '';
        responseCard.style.display = 'none';
      });

      form.addEventListener('submit', async (event) => {
        event.preventDefault();
        sendBtn.disabled = true;
        const originalText = sendBtn.textContent;
        sendBtn.textContent = '发送中...';
        responseCard.style.display = 'none';

        const formData = new FormData(form);
        const payload = {};
        for (const [k, v] of formData.entries()) {
          if (k !== 'token' && v) {
            payload[k] = v;
          }
        }

        try {
          const headers = { 'Content-Type': 'application/json' };
          const token = document.getElementById('hiddenToken').value;
          if (token) headers['Authorization'] = token;

          const response = await fetch('/wxsend', { method: 'POST', headers, body: JSON.stringify(payload) });
          const responseText = await response.text();
          responseArea.textContent = 'Status: ' + response.status + '\n\n' + responseText;
          responseCard.style.display = 'block';
        } catch (err) {
          responseArea.textContent = 'Fetch error: ' + err.message;
          responseCard.style.display = 'block';
        } finally {
          sendBtn.disabled = false;
          sendBtn.textContent = originalText;
        }
      });
    </script>
  </body>
</html>`))

func renderTestPage(token string) ([]byte, error) {
	var buf bytes.Buffer
	if err := testPageTmpl.Execute(&buf, struct{ Token string }{Token: token}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
