package browser

// extractCSSScript aggregates every stylesheet reachable from the document:
// inline <style> tags, same-origin linked sheets via the CSSOM, and a sample of
// element-level style attributes. Cross-origin sheets are skipped by the
// browser's own security model.
const extractCSSScript = `(() => {
	const chunks = [];

	document.querySelectorAll('style').forEach((tag, i) => {
		chunks.push('/* <style> tag ' + (i + 1) + ' */');
		chunks.push(tag.textContent || '');
	});

	for (const sheet of document.styleSheets) {
		try {
			for (const rule of sheet.cssRules) {
				chunks.push(rule.cssText);
			}
		} catch (e) {
			if (sheet.href) {
				chunks.push('/* inaccessible stylesheet: ' + sheet.href + ' */');
			}
		}
	}

	const styled = document.querySelectorAll('[style]');
	if (styled.length > 0) {
		chunks.push('/* inline styles on ' + styled.length + ' elements */');
		Array.from(styled).slice(0, 10).forEach(el => {
			chunks.push(el.tagName.toLowerCase() + ': ' + el.getAttribute('style'));
		});
	}

	return chunks.join('\n');
})()`
